// Package runstore is the pywr serve layer's run manifest registry: one
// row per submitted run (queued, running, complete or failed), keyed by a
// uuid, holding its status and its
// AggregatedScalarRecorder values as JSON, backed by a pgx connection pool
// with goose-managed migrations.
package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"pywr/internal/apperror"
)

// Status is a run's lifecycle state.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Manifest is one row of the run registry.
type Manifest struct {
	ID          uuid.UUID
	Status      Status
	SubmittedAt time.Time
	FinishedAt  *time.Time
	Error       string
	Results     map[string]float64 // metric name -> aggregated value
}

// DB is the subset of *pgxpool.Pool this package calls, so tests can swap
// in pgxmock.PgxPoolIface without this package needing to know about it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store persists run manifests to Postgres.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Connect opens a pgxpool against dsn. Callers typically pass
// config.DatabaseConfig.DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDataError, "connect to run store database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperror.Wrap(err, apperror.CodeDataError, "ping run store database")
	}
	return pool, nil
}

// Create inserts a new queued manifest and returns its ID.
func (s *Store) Create(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.Exec(ctx,
		`INSERT INTO pywr_runs (id, status, submitted_at) VALUES ($1, $2, $3)`,
		id, StatusQueued, time.Now())
	if err != nil {
		return uuid.Nil, apperror.Wrap(err, apperror.CodeDataError, "insert run manifest")
	}
	return id, nil
}

// SetRunning marks a manifest as started.
func (s *Store) SetRunning(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `UPDATE pywr_runs SET status = $2 WHERE id = $1`, id, StatusRunning)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeDataError, "mark run running")
	}
	return nil
}

// Complete records a successful run's results.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, results map[string]float64) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeDataError, "marshal run results")
	}
	_, err = s.db.Exec(ctx,
		`UPDATE pywr_runs SET status = $2, finished_at = $3, results = $4 WHERE id = $1`,
		id, StatusComplete, time.Now(), payload)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeDataError, "complete run manifest")
	}
	return nil
}

// Fail records a run's terminal error.
func (s *Store) Fail(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := s.db.Exec(ctx,
		`UPDATE pywr_runs SET status = $2, finished_at = $3, error = $4 WHERE id = $1`,
		id, StatusFailed, time.Now(), cause.Error())
	if err != nil {
		return apperror.Wrap(err, apperror.CodeDataError, "fail run manifest")
	}
	return nil
}

// Get fetches one manifest by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Manifest, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, status, submitted_at, finished_at, error, results FROM pywr_runs WHERE id = $1`, id)

	var m Manifest
	var finishedAt *time.Time
	var errMsg *string
	var results []byte
	if err := row.Scan(&m.ID, &m.Status, &m.SubmittedAt, &finishedAt, &errMsg, &results); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperror.New(apperror.CodeNotFound, fmt.Sprintf("run %s not found", id))
		}
		return nil, apperror.Wrap(err, apperror.CodeDataError, "query run manifest")
	}
	m.FinishedAt = finishedAt
	if errMsg != nil {
		m.Error = *errMsg
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &m.Results); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeDataError, "unmarshal run results")
		}
	}
	return &m, nil
}
