package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/loopautoma/internal/monitor"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool abstracts pgxpool.Pool so tests can swap in pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id UUID PRIMARY KEY,
    profile_id TEXT NOT NULL,
    state TEXT NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    decisions INTEGER NOT NULL DEFAULT 0,
    polls INTEGER NOT NULL DEFAULT 0,
    vars JSONB NOT NULL DEFAULT '{}',
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_profile_started_idx ON runs (profile_id, started_at DESC);
`

const insertRunSQL = `
INSERT INTO runs (id, profile_id, state, reason, error, decisions, polls, vars, started_at, ended_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING;
`

const listRunsSQL = `
SELECT id, profile_id, state, reason, error, decisions, polls, vars, started_at, ended_at
FROM runs
ORDER BY started_at DESC
LIMIT $1;
`

// Run is one row of the audit trail.
type Run struct {
	ID        string
	ProfileID string
	State     string
	Reason    string
	Error     string
	Decisions int
	Polls     int
	Vars      map[string]string
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration is the wall-clock length of the run.
func (r Run) Duration() time.Duration { return r.EndedAt.Sub(r.StartedAt) }

// Store persists run outcomes in PostgreSQL. It implements monitor.Sink.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ monitor.Sink = (*Store)(nil)

// New creates a store and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the runs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Record inserts the outcome. Recording the same run twice is a no-op.
func (s *Store) Record(ctx context.Context, o *monitor.Outcome) error {
	vars := o.Vars
	if vars == nil {
		vars = map[string]string{}
	}
	varsJSON, err := json.Marshal(vars)
	if err != nil {
		return fmt.Errorf("failed to encode variables for run %s: %w", o.RunID, err)
	}

	// The full error text is kept: risk numbers, region ids and attempt counts
	// all live in the message.
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}

	tag, err := s.pool.Exec(ctx, insertRunSQL,
		o.RunID, o.ProfileID, o.State.String(), o.Reason, errText,
		o.Decisions, o.Polls, string(varsJSON),
		o.StartedAt.UTC(), o.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", o.RunID, err)
	}
	if tag.RowsAffected() == 0 {
		s.log.Debug("Run already recorded", zap.String("run_id", o.RunID))
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive (got %d)", limit)
	}
	rows, err := s.pool.Query(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			varsJSON []byte
		)
		if err := rows.Scan(
			&r.ID, &r.ProfileID, &r.State, &r.Reason, &r.Error,
			&r.Decisions, &r.Polls, &varsJSON,
			&r.StartedAt, &r.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		if len(varsJSON) > 0 {
			if err := json.Unmarshal(varsJSON, &r.Vars); err != nil {
				return nil, fmt.Errorf("failed to decode variables for run %s: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}
