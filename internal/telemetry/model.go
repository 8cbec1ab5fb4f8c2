package telemetry

import "time"

// Session statuses reported by the proctoring client.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusTerminated = "TERMINATED"
)

// DefaultExperiment labels sessions submitted without an experiment name.
const DefaultExperiment = "Unknown Experiment"

// Student represents a registered student, keyed by registration number.
type Student struct {
	ID        string    `json:"id"`
	RegNo     string    `json:"regNo"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	LastLogin time.Time `json:"lastLogin"`
}

// ExperimentLog is one proctored lab session. Rows are append-only:
// once written they are never updated.
type ExperimentLog struct {
	ID          int64     `json:"id"`
	StudentName string    `json:"studentName"`
	RegNo       string    `json:"regNo"`
	Experiment  string    `json:"experiment"`
	TimeTaken   float64   `json:"timeTaken"`
	TabSwitches int       `json:"tabSwitches"`
	ScreenShots int       `json:"screenShots"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalLogs       int64            `json:"totalLogs"`
	ByStatus        map[string]int64 `json:"byStatus"`
	TotalViolations int64            `json:"totalViolations"`
	AvgTabSwitches  float64          `json:"avgTabSwitches"`
	ActiveStudents  int64            `json:"activeStudents"`
}

// DirectoryEntry is one row of the student directory: identity joined
// with the student's session count.
type DirectoryEntry struct {
	Name       string    `json:"name"`
	RegNo      string    `json:"regNo"`
	Email      string    `json:"email"`
	LastActive time.Time `json:"lastActive"`
	TotalLabs  int64     `json:"totalLabs"`
}

// ValidStatus reports whether s is one of the known session statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusInProgress, StatusCompleted, StatusTerminated:
		return true
	}
	return false
}
