package generation

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/mbd888/postforge/internal/pagination"
	"github.com/mbd888/postforge/internal/platform"
)

// PostgresStore persists generation records in PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL-backed generation store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the generations table if it doesn't exist
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generations (
			id          VARCHAR(36) PRIMARY KEY,
			user_id     VARCHAR(64) NOT NULL,
			source      VARCHAR(16) NOT NULL,
			topic       TEXT,
			content     TEXT NOT NULL,
			tone        VARCHAR(64),
			platforms   TEXT[] NOT NULL,
			outputs     JSONB NOT NULL,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_generations_user_created
			ON generations(user_id, created_at DESC, id DESC);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, r *Record) error {
	outputs, err := json.Marshal(r.Outputs)
	if err != nil {
		return err
	}

	platforms := make([]string, len(r.Platforms))
	for i, pl := range r.Platforms {
		platforms[i] = string(pl)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO generations (id, user_id, source, topic, content, tone, platforms, outputs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.UserID, r.Source, r.Topic, r.Content, r.Tone, pq.Array(platforms), outputs, r.CreatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, userID, id string) (*Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, source, topic, content, tone, platforms, outputs, created_at
		FROM generations WHERE user_id = $1 AND id = $2
	`, userID, id)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return r, err
}

func (p *PostgresStore) List(ctx context.Context, userID string, limit int, cursor string) ([]*Record, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}

	var rows *sql.Rows
	if cur != nil {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, user_id, source, topic, content, tone, platforms, outputs, created_at
			FROM generations
			WHERE user_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, userID, cur.CreatedAt, cur.ID, limit+1)
	} else {
		rows, err = p.db.QueryContext(ctx, `
			SELECT id, user_id, source, topic, content, tone, platforms, outputs, created_at
			FROM generations
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, userID, limit+1)
	}
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = rows.Close() }()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, "", err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	page, next, _ := pagination.ComputePage(records, limit, func(r *Record) (time.Time, string) {
		return r.CreatedAt, r.ID
	})
	return page, next, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	r := &Record{}
	var topic, tone sql.NullString
	var platforms pq.StringArray
	var outputs []byte

	err := row.Scan(&r.ID, &r.UserID, &r.Source, &topic, &r.Content, &tone,
		&platforms, &outputs, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	r.Topic = topic.String
	r.Tone = tone.String

	r.Platforms = make([]platform.Platform, len(platforms))
	for i, p := range platforms {
		r.Platforms[i] = platform.Platform(p)
	}

	if err := json.Unmarshal(outputs, &r.Outputs); err != nil {
		return nil, err
	}
	return r, nil
}
