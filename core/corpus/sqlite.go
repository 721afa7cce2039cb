package corpus

import (
	"context"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
	"github.com/FocuswithJustin/Granthalaya/core/sqlite"
)

// SQLiteProvider reads documents stored as JSON rows by ImportSQLite.
type SQLiteProvider struct {
	Path    string
	Workers int
}

// Name implements Provider.
func (p *SQLiteProvider) Name() string { return string(KindSQLite) }

// ListDocuments implements Provider. Rows are returned in source order.
func (p *SQLiteProvider) ListDocuments(ctx context.Context) (*Listing, error) {
	// The driver would create a missing file; an absent database is an
	// unreachable store.
	if _, err := os.Stat(p.Path); err != nil {
		return nil, errors.NewIO("open corpus database", p.Path, err)
	}

	db, err := sqlite.OpenReadOnly(p.Path)
	if err != nil {
		return nil, errors.NewIO("open corpus database", p.Path, err)
	}
	defer db.Close()

	rows, err := sqlite.NewStore(db).Rows(ctx)
	if err != nil {
		return nil, errors.NewIO("read corpus database", p.Path, err)
	}

	entries := make([]entry, len(rows))
	for i, r := range rows {
		body := r.Body
		entries[i] = entry{name: r.Source, read: func() ([]byte, error) { return body, nil }}
	}
	return decodeAll(ctx, entries, p.Workers)
}

// ImportResult summarizes an ImportSQLite run.
type ImportResult struct {
	Imported    int
	Diagnostics []Diagnostic
}

// ImportSQLite copies the JSON documents of directory src into the SQLite
// database at dbPath, creating it if needed. Documents that fail to decode
// are not imported and are reported as diagnostics.
func ImportSQLite(ctx context.Context, src, dbPath string) (*ImportResult, error) {
	des, err := os.ReadDir(src)
	if err != nil {
		return nil, errors.NewIO("read corpus directory", src, err)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, errors.NewIO("open corpus database", dbPath, err)
	}
	defer db.Close()

	store := sqlite.NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	res := &ImportResult{}
	var rows []sqlite.Row
	for _, de := range des {
		if de.IsDir() || !wantsFile(de.Name(), false) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, de.Name()))
		if err != nil {
			return nil, errors.NewIO("read", de.Name(), err)
		}
		doc, _, err := scripture.DecodeDocument(data, de.Name())
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Source:   de.Name(),
				Severity: SeverityError,
				Message:  "not imported: " + err.Error(),
				Err:      err,
			})
			continue
		}
		rows = append(rows, sqlite.Row{Source: de.Name(), Slug: doc.ID(), Body: data})
	}

	if err := store.Put(ctx, rows...); err != nil {
		return nil, err
	}
	res.Imported = len(rows)
	return res, nil
}
