package telemetry

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository persists students and experiment logs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// persistErr translates a store failure into the error taxonomy.
// Unique-violation races surface as ErrConflict so callers can retry.
func persistErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return &PersistenceError{Op: op, Err: err}
}

// UpsertStudent creates or updates a student keyed on reg_no. The
// conditional write happens inside the database, so concurrent logins
// for the same reg_no never produce two rows.
func (r *Repository) UpsertStudent(ctx context.Context, regNo, name, email string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, reg_no, name, email, last_login)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (reg_no) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			last_login = NOW()
		RETURNING id, reg_no, name, email, last_login
	`, uuid.NewString(), regNo, name, email)
	var st Student
	if err := row.Scan(&st.ID, &st.RegNo, &st.Name, &st.Email, &st.LastLogin); err != nil {
		return Student{}, persistErr("upsert student", err)
	}
	return st, nil
}

// CountStudents returns the number of registered students.
func (r *Repository) CountStudents(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n); err != nil {
		return 0, persistErr("count students", err)
	}
	return n, nil
}

// ListStudents returns all students, most recently active first.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reg_no, name, email, last_login
		FROM students
		ORDER BY last_login DESC
	`)
	if err != nil {
		return nil, persistErr("list students", err)
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.RegNo, &st.Name, &st.Email, &st.LastLogin); err != nil {
			return nil, persistErr("list students", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list students", err)
	}
	return students, nil
}

// InsertLog appends a session row. The id and submission timestamp are
// assigned by the database, never trusted from the client.
func (r *Repository) InsertLog(ctx context.Context, lg ExperimentLog) (ExperimentLog, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO experiment_logs
			(student_name, reg_no, experiment, time_taken, tab_switches, screen_shots, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, submitted_at
	`, lg.StudentName, lg.RegNo, lg.Experiment, lg.TimeTaken, lg.TabSwitches, lg.ScreenShots, lg.Status)
	if err := row.Scan(&lg.ID, &lg.SubmittedAt); err != nil {
		return ExperimentLog{}, persistErr("insert log", err)
	}
	return lg, nil
}

// GetLog returns a single session by id.
func (r *Repository) GetLog(ctx context.Context, id int64) (ExperimentLog, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_name, reg_no, experiment, time_taken, tab_switches, screen_shots, status, submitted_at
		FROM experiment_logs WHERE id = $1
	`, id)
	var lg ExperimentLog
	err := row.Scan(&lg.ID, &lg.StudentName, &lg.RegNo, &lg.Experiment, &lg.TimeTaken,
		&lg.TabSwitches, &lg.ScreenShots, &lg.Status, &lg.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ExperimentLog{}, ErrNotFound
	}
	if err != nil {
		return ExperimentLog{}, persistErr("get log", err)
	}
	return lg, nil
}

// ListLogs returns sessions newest first.
func (r *Repository) ListLogs(ctx context.Context, limit, offset int) ([]ExperimentLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_name, reg_no, experiment, time_taken, tab_switches, screen_shots, status, submitted_at
		FROM experiment_logs
		ORDER BY submitted_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, persistErr("list logs", err)
	}
	defer rows.Close()

	var logs []ExperimentLog
	for rows.Next() {
		var lg ExperimentLog
		if err := rows.Scan(&lg.ID, &lg.StudentName, &lg.RegNo, &lg.Experiment, &lg.TimeTaken,
			&lg.TabSwitches, &lg.ScreenShots, &lg.Status, &lg.SubmittedAt); err != nil {
			return nil, persistErr("list logs", err)
		}
		logs = append(logs, lg)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list logs", err)
	}
	return logs, nil
}

// DeleteLog removes a session by id. Legacy admin route only.
func (r *Repository) DeleteLog(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM experiment_logs WHERE id = $1`, id)
	if err != nil {
		return persistErr("delete log", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr("delete log", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LogStats computes every per-log dashboard figure in one aggregate
// pass; the log is unbounded and never loaded into memory.
func (r *Repository) LogStats(ctx context.Context) (Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'TERMINATED'),
			COUNT(*) FILTER (WHERE status = 'IN_PROGRESS'),
			COALESCE(SUM(tab_switches + screen_shots), 0),
			COALESCE(AVG(tab_switches), 0)
		FROM experiment_logs
	`)
	var s Stats
	var completed, terminated, inProgress int64
	if err := row.Scan(&s.TotalLogs, &completed, &terminated, &inProgress,
		&s.TotalViolations, &s.AvgTabSwitches); err != nil {
		return Stats{}, persistErr("log stats", err)
	}
	s.ByStatus = map[string]int64{
		StatusCompleted:  completed,
		StatusTerminated: terminated,
		StatusInProgress: inProgress,
	}
	return s, nil
}

// CountLogsByStudent returns session counts grouped by reg_no in a
// single query, regardless of how many students exist.
func (r *Repository) CountLogsByStudent(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT reg_no, COUNT(*) FROM experiment_logs GROUP BY reg_no
	`)
	if err != nil {
		return nil, persistErr("count logs by student", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var regNo string
		var n int64
		if err := rows.Scan(&regNo, &n); err != nil {
			return nil, persistErr("count logs by student", err)
		}
		counts[regNo] = n
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("count logs by student", err)
	}
	return counts, nil
}
