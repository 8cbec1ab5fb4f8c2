package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and applies
// the schema.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		return &DB{Client: db}, err
	}
	if err := migrate(db); err != nil {
		return &DB{Client: db}, err
	}
	return &DB{Client: db}, nil
}

// migrate applies the schema. Logs deliberately carry no foreign key
// to students: a session may arrive before its student's first login.
func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id         TEXT PRIMARY KEY,
		reg_no     TEXT UNIQUE NOT NULL,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		last_login TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS experiment_logs (
		id           BIGSERIAL PRIMARY KEY,
		student_name TEXT NOT NULL,
		reg_no       TEXT NOT NULL,
		experiment   TEXT NOT NULL,
		time_taken   DOUBLE PRECISION NOT NULL DEFAULT 0,
		tab_switches INTEGER NOT NULL DEFAULT 0,
		screen_shots INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_experiment_logs_reg_no    ON experiment_logs(reg_no);
	CREATE INDEX IF NOT EXISTS idx_experiment_logs_submitted ON experiment_logs(submitted_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
