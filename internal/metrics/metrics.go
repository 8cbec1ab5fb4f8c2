package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins counts identity upserts from proctoring clients.
	Logins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proctorlog_logins_total",
		Help: "Student logins processed.",
	})

	// SessionsIngested counts appended sessions by terminal status.
	SessionsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "proctorlog_sessions_ingested_total",
		Help: "Experiment sessions appended to the log.",
	}, []string{"status"})

	// ViolationFlags counts sessions the worker flagged for review.
	ViolationFlags = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proctorlog_violation_flags_total",
		Help: "Sessions flagged for exceeding the violation threshold.",
	})
)
