package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Store is the persistence surface the service needs. *Repository
// satisfies it; tests supply an in-memory double.
type Store interface {
	UpsertStudent(ctx context.Context, regNo, name, email string) (Student, error)
	CountStudents(ctx context.Context) (int64, error)
	ListStudents(ctx context.Context) ([]Student, error)
	InsertLog(ctx context.Context, lg ExperimentLog) (ExperimentLog, error)
	ListLogs(ctx context.Context, limit, offset int) ([]ExperimentLog, error)
	DeleteLog(ctx context.Context, id int64) error
	LogStats(ctx context.Context) (Stats, error)
	CountLogsByStudent(ctx context.Context) (map[string]int64, error)
}

// Cache holds short-lived dashboard snapshots. Best-effort: a miss or
// a failure just recomputes.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

const statsCacheKey = "proctorlog:stats"

// SessionInput is an inbound session submission. TabSwitches and
// ScreenShots stay untyped because clients have been observed sending
// them as numbers, numeric strings, or garbage.
type SessionInput struct {
	StudentName string  `json:"studentName"`
	RegNo       string  `json:"regNo"`
	Experiment  string  `json:"experiment"`
	TimeTaken   float64 `json:"timeTaken"`
	TabSwitches any     `json:"tabSwitches"`
	ScreenShots any     `json:"screenShots"`
	Status      string  `json:"status"`
}

// Service coordinates identity upserts, session appends, and the
// dashboard aggregates.
type Service struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
}

// NewService creates a service backed by a store. cache may be nil.
func NewService(store Store, cache Cache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Second
	}
	return &Service{store: store, cache: cache, cacheTTL: cacheTTL}
}

// Login creates or refreshes the student identified by regNo. A
// unique-violation race is retried once; the upsert itself is atomic
// in the store.
func (s *Service) Login(ctx context.Context, name, regNo, email string) (Student, error) {
	regNo = strings.TrimSpace(regNo)
	name = strings.TrimSpace(name)
	if regNo == "" {
		return Student{}, &ValidationError{Field: "regNo", Reason: "required"}
	}
	if name == "" {
		return Student{}, &ValidationError{Field: "name", Reason: "required"}
	}

	st, err := s.store.UpsertStudent(ctx, regNo, name, email)
	if errors.Is(err, ErrConflict) {
		st, err = s.store.UpsertStudent(ctx, regNo, name, email)
	}
	return st, err
}

// SubmitSession validates and appends one session. The row either
// fully persists or the caller gets an error; nothing else is touched.
func (s *Service) SubmitSession(ctx context.Context, in SessionInput) (ExperimentLog, error) {
	regNo := strings.TrimSpace(in.RegNo)
	if regNo == "" {
		return ExperimentLog{}, &ValidationError{Field: "regNo", Reason: "required"}
	}
	studentName := strings.TrimSpace(in.StudentName)
	if studentName == "" {
		return ExperimentLog{}, &ValidationError{Field: "studentName", Reason: "required"}
	}

	status := strings.ToUpper(strings.TrimSpace(in.Status))
	if !ValidStatus(status) {
		return ExperimentLog{}, &ValidationError{Field: "status", Reason: "unknown status"}
	}

	tabSwitches, err := coerceCount("tabSwitches", in.TabSwitches)
	if err != nil {
		return ExperimentLog{}, err
	}
	screenShots, err := coerceCount("screenShots", in.ScreenShots)
	if err != nil {
		return ExperimentLog{}, err
	}
	if in.TimeTaken < 0 {
		return ExperimentLog{}, &ValidationError{Field: "timeTaken", Reason: "must be non-negative"}
	}

	experiment := strings.TrimSpace(in.Experiment)
	if experiment == "" {
		experiment = DefaultExperiment
	}

	return s.store.InsertLog(ctx, ExperimentLog{
		StudentName: studentName,
		RegNo:       regNo,
		Experiment:  experiment,
		TimeTaken:   in.TimeTaken,
		TabSwitches: tabSwitches,
		ScreenShots: screenShots,
		Status:      status,
	})
}

// Logs returns sessions newest first, re-read from the store on every
// call.
func (s *Service) Logs(ctx context.Context, limit, offset int) ([]ExperimentLog, error) {
	return s.store.ListLogs(ctx, limit, offset)
}

// DeleteLog hard-deletes a session by id. Legacy dashboard route.
func (s *Service) DeleteLog(ctx context.Context, id int64) error {
	return s.store.DeleteLog(ctx, id)
}

// Stats returns the dashboard summary: one aggregate pass over the log
// plus one student count. Figures may be up to cacheTTL stale when the
// cache is configured.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, statsCacheKey); ok {
			var cached Stats
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	stats, err := s.store.LogStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.ActiveStudents, err = s.store.CountStudents(ctx)
	if err != nil {
		return Stats{}, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.cache.Set(ctx, statsCacheKey, string(raw), s.cacheTTL)
		}
	}
	return stats, nil
}

// Directory returns every student with their session count, most
// recently active first. Two bounded queries — the student list and
// one grouped count — merged in memory by regNo; a per-student count
// query would degrade linearly with directory size.
func (s *Service) Directory(ctx context.Context) ([]DirectoryEntry, error) {
	students, err := s.store.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountLogsByStudent(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]DirectoryEntry, 0, len(students))
	for _, st := range students {
		entries = append(entries, DirectoryEntry{
			Name:       st.Name,
			RegNo:      st.RegNo,
			Email:      st.Email,
			LastActive: st.LastLogin,
			TotalLabs:  counts[st.RegNo],
		})
	}
	return entries, nil
}

// coerceCount turns an untrusted JSON value into a non-negative int.
func coerceCount(field string, v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, &ValidationError{Field: field, Reason: "required"}
	case float64:
		if n != math.Trunc(n) {
			return 0, &ValidationError{Field: field, Reason: "must be an integer"}
		}
		if n < 0 {
			return 0, &ValidationError{Field: field, Reason: "must be non-negative"}
		}
		return int(n), nil
	case int:
		if n < 0 {
			return 0, &ValidationError{Field: field, Reason: "must be non-negative"}
		}
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, &ValidationError{Field: field, Reason: "must be an integer"}
		}
		if i < 0 {
			return 0, &ValidationError{Field: field, Reason: "must be non-negative"}
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, &ValidationError{Field: field, Reason: "not a number"}
		}
		if i < 0 {
			return 0, &ValidationError{Field: field, Reason: "must be non-negative"}
		}
		return i, nil
	default:
		return 0, &ValidationError{Field: field, Reason: "not a number"}
	}
}
