package corpus

import (
	"archive/tar"
	"context"
	"io"
	"sort"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/internal/archive"
)

// ArchiveProvider reads documents from a .tar.xz or .tar.gz bundle.
type ArchiveProvider struct {
	Path       string
	IncludeXML bool
	Workers    int
}

// Name implements Provider.
func (p *ArchiveProvider) Name() string { return string(KindArchive) }

// ListDocuments implements Provider. The tar stream is read once; entries
// are decoded concurrently and reported in entry-name order.
func (p *ArchiveProvider) ListDocuments(ctx context.Context) (*Listing, error) {
	blobs := make(map[string][]byte)
	err := archive.IterateBundle(p.Path, func(h *tar.Header, r io.Reader) (bool, error) {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if h.Typeflag != tar.TypeReg {
			return false, nil
		}
		name := archive.EntryName(h.Name)
		if !wantsFile(name, p.IncludeXML) {
			return false, nil
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return true, err
		}
		blobs[name] = data
		return false, nil
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, errors.NewIO("read corpus bundle", p.Path, err)
	}

	names := make([]string, 0, len(blobs))
	for name := range blobs {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]entry, len(names))
	for i, name := range names {
		data := blobs[name]
		entries[i] = entry{name: name, read: func() ([]byte, error) { return data, nil }}
	}
	return decodeAll(ctx, entries, p.Workers)
}
