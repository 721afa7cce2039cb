package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

// DirProvider reads one document per file directly inside Dir. It does not
// descend into subdirectories.
type DirProvider struct {
	Dir        string
	IncludeXML bool
	Workers    int
}

// Name implements Provider.
func (p *DirProvider) Name() string { return string(KindDir) }

// ListDocuments implements Provider. Files are read concurrently and
// reported in file-name order. A missing or unreadable directory is an
// *errors.IOError.
func (p *DirProvider) ListDocuments(ctx context.Context) (*Listing, error) {
	des, err := os.ReadDir(p.Dir)
	if err != nil {
		return nil, errors.NewIO("read corpus directory", p.Dir, err)
	}

	var names []string
	for _, de := range des {
		if de.IsDir() || !wantsFile(de.Name(), p.IncludeXML) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	entries := make([]entry, len(names))
	for i, name := range names {
		full := filepath.Join(p.Dir, name)
		entries[i] = entry{
			name: name,
			read: func() ([]byte, error) { return os.ReadFile(full) },
		}
	}
	return decodeAll(ctx, entries, p.Workers)
}
