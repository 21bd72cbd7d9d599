package brandvoice

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed voice store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the brand_voices table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS brand_voices (
			id             VARCHAR(40) PRIMARY KEY,
			user_id        VARCHAR(64) NOT NULL,
			name           TEXT NOT NULL,
			tone           TEXT NOT NULL,
			sentence_style TEXT NOT NULL DEFAULT '',
			vocabulary     TEXT[] NOT NULL DEFAULT '{}',
			strictness     NUMERIC(3,2) NOT NULL DEFAULT 0.5,
			format_traits  TEXT[] NOT NULL DEFAULT '{}',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_brand_voices_user ON brand_voices(user_id);
	`)
	return err
}

func (p *PostgresStore) Create(ctx context.Context, v *Voice) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO brand_voices (id, user_id, name, tone, sentence_style, vocabulary, strictness, format_traits, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.UserID, v.Name, v.Tone, v.SentenceStyle,
		pq.Array(v.Vocabulary), v.Strictness, pq.Array(v.FormatTraits), v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert brand voice: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, userID, id string) (*Voice, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, tone, sentence_style, vocabulary, strictness, format_traits, created_at
		FROM brand_voices WHERE id = $1 AND user_id = $2
	`, id, userID)

	v, err := scanVoice(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get brand voice: %w", err)
	}
	return v, nil
}

func (p *PostgresStore) List(ctx context.Context, userID string) ([]*Voice, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, name, tone, sentence_style, vocabulary, strictness, format_traits, created_at
		FROM brand_voices WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list brand voices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var voices []*Voice
	for rows.Next() {
		v, err := scanVoice(rows)
		if err != nil {
			return nil, err
		}
		voices = append(voices, v)
	}
	return voices, rows.Err()
}

func (p *PostgresStore) Delete(ctx context.Context, userID, id string) error {
	res, err := p.db.ExecContext(ctx, `
		DELETE FROM brand_voices WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete brand voice: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVoice(row scannable) (*Voice, error) {
	v := &Voice{}
	var vocab, traits pq.StringArray
	if err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.Tone, &v.SentenceStyle,
		&vocab, &v.Strictness, &traits, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Vocabulary = []string(vocab)
	v.FormatTraits = []string(traits)
	return v, nil
}
