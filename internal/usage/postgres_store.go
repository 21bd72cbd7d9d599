package usage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mbd888/postforge/internal/plan"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed usage store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the profiles and usage_events tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS profiles (
			user_id    VARCHAR(64) PRIMARY KEY,
			plan       VARCHAR(20) NOT NULL DEFAULT 'free',
			limits     JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS usage_events (
			id         VARCHAR(40) PRIMARY KEY,
			user_id    VARCHAR(64) NOT NULL,
			event_type VARCHAR(40) NOT NULL,
			meta       JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_usage_events_user_day ON usage_events(user_id, created_at);
	`)
	return err
}

func (p *PostgresStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT user_id, plan, limits, created_at FROM profiles WHERE user_id = $1
	`, userID)

	prof, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return prof, nil
}

func (p *PostgresStore) CreateProfile(ctx context.Context, prof *Profile) (*Profile, error) {
	var overrideJSON any
	if prof.Override != nil {
		b, err := json.Marshal(prof.Override)
		if err != nil {
			return nil, fmt.Errorf("marshal override: %w", err)
		}
		overrideJSON = b
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, plan, limits, created_at) VALUES ($1, $2, $3, $4)
	`, prof.UserID, string(prof.Plan), overrideJSON, prof.CreatedAt)
	if err != nil {
		// Duplicate insert means a concurrent caller bootstrapped the
		// profile first; re-read instead of failing.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return p.GetProfile(ctx, prof.UserID)
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return prof, nil
}

func (p *PostgresStore) CountEventsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM usage_events WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (p *PostgresStore) AppendEvent(ctx context.Context, e *Event) error {
	meta := e.Metadata
	if meta == "" {
		meta = "{}"
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, user_id, event_type, meta, created_at)
		VALUES ($1, $2, $3, $4::JSONB, $5)
	`, e.ID, e.UserID, e.EventType, meta, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ReserveDaily serialises the count-and-append per user with an advisory
// transaction lock, so two concurrent requests at limit-1 cannot both pass.
func (p *PostgresStore) ReserveDaily(ctx context.Context, e *Event, since time.Time, limit *int) (int, bool, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, e.UserID); err != nil {
		return 0, false, fmt.Errorf("acquire user lock: %w", err)
	}

	var used int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM usage_events WHERE user_id = $1 AND created_at >= $2
	`, e.UserID, since).Scan(&used)
	if err != nil {
		return 0, false, fmt.Errorf("count events: %w", err)
	}

	if limit != nil && used >= *limit {
		return used, false, nil
	}

	meta := e.Metadata
	if meta == "" {
		meta = "{}"
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO usage_events (id, user_id, event_type, meta, created_at)
		VALUES ($1, $2, $3, $4::JSONB, $5)
	`, e.ID, e.UserID, e.EventType, meta, e.CreatedAt)
	if err != nil {
		return 0, false, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit reserve: %w", err)
	}
	return used + 1, true, nil
}

func scanProfile(row *sql.Row) (*Profile, error) {
	prof := &Profile{}
	var planName string
	var overrideJSON []byte
	if err := row.Scan(&prof.UserID, &planName, &overrideJSON, &prof.CreatedAt); err != nil {
		return nil, err
	}
	prof.Plan = plan.Plan(planName)
	if len(overrideJSON) > 0 {
		var o plan.Limits
		if err := json.Unmarshal(overrideJSON, &o); err != nil {
			return nil, fmt.Errorf("decode limits override: %w", err)
		}
		prof.Override = &o
	}
	return prof, nil
}
