package sqlite

import (
	"context"
	"database/sql"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS scriptures (
	source     TEXT PRIMARY KEY,
	slug       TEXT NOT NULL DEFAULT '',
	body       BLOB NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
);
CREATE INDEX IF NOT EXISTS scriptures_slug ON scriptures(slug);
`

// Row is one stored document. Body holds the document's JSON bytes exactly
// as read from the directory corpus.
type Row struct {
	Source string
	Slug   string
	Body   []byte
}

// Store reads and writes scripture rows.
type Store struct {
	db *sql.DB
}

// NewStore wraps db. Call EnsureSchema before writing.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the scriptures table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create scriptures schema")
	}
	return nil
}

// Put upserts rows in one transaction, keyed by source.
func (s *Store) Put(ctx context.Context, rows ...Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin import")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scriptures (source, slug, body) VALUES (?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			slug = excluded.slug,
			body = excluded.body,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`)
	if err != nil {
		return errors.Wrap(err, "prepare import")
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Source, r.Slug, r.Body); err != nil {
			return errors.Wrapf(err, "import %s", r.Source)
		}
	}
	return tx.Commit()
}

// Rows returns every stored row ordered by source.
func (s *Store) Rows(ctx context.Context) ([]Row, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT source, slug, body FROM scriptures ORDER BY source`)
	if err != nil {
		return nil, errors.Wrap(err, "query scriptures")
	}
	defer rs.Close()

	var out []Row
	for rs.Next() {
		var r Row
		if err := rs.Scan(&r.Source, &r.Slug, &r.Body); err != nil {
			return nil, errors.Wrap(err, "scan scripture row")
		}
		out = append(out, r)
	}
	return out, rs.Err()
}

// Count returns the number of stored rows.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scriptures`).Scan(&n)
	return n, err
}
