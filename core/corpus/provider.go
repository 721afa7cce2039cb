// Package corpus enumerates scripture documents from a content store and
// turns them into immutable snapshots for the search and listing layers.
package corpus

import (
	"context"
	"path"
	"strings"

	"github.com/FocuswithJustin/Granthalaya/core/cas"
	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
	corexml "github.com/FocuswithJustin/Granthalaya/core/xml"
)

// Provider enumerates the documents of one content store.
type Provider interface {
	// Name identifies the provider kind in logs and metrics.
	Name() string
	// ListDocuments reads every document. Malformed documents are skipped
	// and reported as diagnostics; only an unreachable store is an error.
	ListDocuments(ctx context.Context) (*Listing, error)
}

// Listing is the result of one ListDocuments call.
type Listing struct {
	Documents   []*scripture.Document
	Diagnostics []Diagnostic
	// Fingerprint is a BLAKE3 digest over every entry's name and bytes.
	Fingerprint string
}

// Severity of a diagnostic.
type Severity string

const (
	// SeverityError means the document was not loaded.
	SeverityError Severity = "error"
	// SeverityWarning means the document loaded with parts skipped.
	SeverityWarning Severity = "warning"
)

// Diagnostic records a problem with one document.
type Diagnostic struct {
	Source   string   `json:"source"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path,omitempty"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

func (d Diagnostic) String() string {
	s := d.Source
	if d.Path != "" {
		s += " " + d.Path
	}
	return s + ": " + d.Message
}

// Kind names a provider implementation.
type Kind string

const (
	KindDir     Kind = "dir"
	KindArchive Kind = "archive"
	KindSQLite  Kind = "sqlite"
)

// Options configure Open.
type Options struct {
	IncludeXML bool
	Workers    int
}

// Open returns the provider of kind reading location.
func Open(kind Kind, location string, opts Options) (Provider, error) {
	switch kind {
	case KindDir, "":
		return &DirProvider{Dir: location, IncludeXML: opts.IncludeXML, Workers: opts.Workers}, nil
	case KindArchive:
		return &ArchiveProvider{Path: location, IncludeXML: opts.IncludeXML, Workers: opts.Workers}, nil
	case KindSQLite:
		return &SQLiteProvider{Path: location, Workers: opts.Workers}, nil
	default:
		return nil, errors.NewUnsupported("corpus source "+string(kind), "use dir, archive or sqlite")
	}
}

// entry is one raw document waiting to be decoded.
type entry struct {
	name string
	read func() ([]byte, error)
}

// decoded is the outcome of one entry.
type decoded struct {
	data   []byte
	doc    *scripture.Document
	issues []scripture.Issue
	err    error
}

// wantsFile reports whether a file name is a document the provider reads.
func wantsFile(name string, includeXML bool) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return path.Base(name) != "manifest.json"
	case ".xml":
		return includeXML
	}
	return false
}

// decodeEntry decodes data by the entry's extension.
func decodeEntry(name string, data []byte) (*scripture.Document, []scripture.Issue, error) {
	if strings.EqualFold(path.Ext(name), ".xml") {
		return corexml.Decode(data, name)
	}
	return scripture.DecodeDocument(data, name)
}

// decodeAll reads and decodes entries concurrently and assembles a listing
// in entry order. Read failures of individual entries become diagnostics.
func decodeAll(ctx context.Context, entries []entry, workers int) (*Listing, error) {
	listing := &Listing{}
	if len(entries) == 0 {
		listing.Fingerprint = cas.NewHasher().Fingerprint()
		return listing, nil
	}

	results, err := decodeEntries(ctx, entries, workers)
	if err != nil {
		return nil, err
	}

	hasher := cas.NewHasher()
	for i, r := range results {
		name := entries[i].name
		hasher.Add(name, r.data)

		if r.err != nil {
			listing.Diagnostics = append(listing.Diagnostics, Diagnostic{
				Source:   name,
				Severity: SeverityError,
				Message:  "document skipped: " + r.err.Error(),
				Err:      r.err,
			})
			continue
		}
		for _, is := range r.issues {
			listing.Diagnostics = append(listing.Diagnostics, Diagnostic{
				Source:   name,
				Severity: SeverityWarning,
				Path:     is.Path,
				Message:  is.Message,
			})
		}
		listing.Documents = append(listing.Documents, r.doc)
	}
	listing.Fingerprint = hasher.Fingerprint()
	return listing, nil
}
