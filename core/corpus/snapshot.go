package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/Granthalaya/core/flatten"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// Snapshot is one immutable load of the corpus. Nothing in a snapshot is
// modified after Load returns, so it may be shared between requests.
type Snapshot struct {
	// Generation is unique per load.
	Generation  string
	Fingerprint string
	Provider    string
	LoadedAt    time.Time
	Documents   []*scripture.Document
	Verses      []flatten.SearchableVerse
	Diagnostics []Diagnostic

	bySlug map[string]*scripture.Document
}

// LoadOptions configure Load.
type LoadOptions struct {
	// Strict skips documents whose slug or verse ids collide instead of
	// loading them with warnings.
	Strict bool
}

// Load reads the corpus from p and builds a snapshot.
//
// Every parsed document is kept, so the listing has one record per verse.
// A document reusing an earlier slug, and verse ids that collide within a
// document or with an earlier document, are reported as warnings. With
// opts.Strict they are errors and the offending document is skipped.
// Document(slug) resolves to the first document with that slug.
func Load(ctx context.Context, p Provider, opts LoadOptions) (*Snapshot, error) {
	listing, err := p.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Generation:  uuid.NewString(),
		Fingerprint: listing.Fingerprint,
		Provider:    p.Name(),
		LoadedAt:    time.Now().UTC(),
		Diagnostics: append([]Diagnostic(nil), listing.Diagnostics...),
		bySlug:      make(map[string]*scripture.Document, len(listing.Documents)),
	}
	verseOwner := make(map[string]string)

	for _, doc := range listing.Documents {
		id := doc.ID()
		var problems []Diagnostic

		first, dupSlug := snap.bySlug[id]
		if dupSlug {
			problems = append(problems, Diagnostic{
				Source:  doc.Source,
				Message: fmt.Sprintf("slug %q already used by %s", id, first.Source),
			})
		}
		for _, is := range scripture.Validate(doc) {
			problems = append(problems, Diagnostic{Source: doc.Source, Path: is.Path, Message: is.Message})
		}
		problems = append(problems, crossCollisions(doc, verseOwner)...)

		severity := SeverityWarning
		if opts.Strict && len(problems) > 0 {
			severity = SeverityError
		}
		for _, d := range problems {
			d.Severity = severity
			snap.Diagnostics = append(snap.Diagnostics, d)
		}
		if severity == SeverityError {
			continue
		}

		if !dupSlug {
			snap.bySlug[id] = doc
		}
		snap.Documents = append(snap.Documents, doc)
		claimVerses(doc, verseOwner)
	}

	snap.Verses = flatten.Flatten(snap.Documents)
	return snap, nil
}

// crossCollisions reports verse ids of doc already owned by an earlier
// document. owner maps verse ids to the source that loaded them.
func crossCollisions(doc *scripture.Document, owner map[string]string) []Diagnostic {
	var out []Diagnostic
	slug := doc.ID()
	reported := make(map[string]bool)
	for i, sec := range doc.Content.Sections {
		for j, v := range sec.Verses {
			vid := scripture.VerseID(slug, sec.Number, v.VerseNumber)
			src, taken := owner[vid]
			if !taken || reported[vid] {
				continue
			}
			reported[vid] = true
			out = append(out, Diagnostic{
				Source:  doc.Source,
				Path:    fmt.Sprintf("sections[%d].verses[%d]", i, j),
				Message: fmt.Sprintf("verse id %q also used by %s", vid, src),
			})
		}
	}
	return out
}

func claimVerses(doc *scripture.Document, owner map[string]string) {
	slug := doc.ID()
	for _, sec := range doc.Content.Sections {
		for _, v := range sec.Verses {
			vid := scripture.VerseID(slug, sec.Number, v.VerseNumber)
			if _, taken := owner[vid]; !taken {
				owner[vid] = doc.Source
			}
		}
	}
}

// Document returns the document with id slug.
func (s *Snapshot) Document(slug string) (*scripture.Document, bool) {
	d, ok := s.bySlug[slug]
	return d, ok
}

// Errors counts error diagnostics.
func (s *Snapshot) Errors() int {
	n := 0
	for _, d := range s.Diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Skipped counts the documents an error diagnostic kept out of the snapshot.
func (s *Snapshot) Skipped() int {
	sources := make(map[string]bool)
	for _, d := range s.Diagnostics {
		if d.Severity == SeverityError {
			sources[d.Source] = true
		}
	}
	return len(sources)
}
