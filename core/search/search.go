// Package search implements case-insensitive substring search over
// scripture documents, a coarse filter over flattened verses, and an
// optional ranked full-text index.
package search

import (
	"strings"

	"github.com/FocuswithJustin/Granthalaya/core/flatten"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// MatchType tells whether a result came from verse text or a commentary.
type MatchType string

const (
	MatchVerse      MatchType = "verse"
	MatchCommentary MatchType = "commentary"
)

// Result is one verse-level or commentary-level match.
type Result struct {
	ScriptureSlug    string            `json:"scriptureSlug"`
	ScriptureName    string            `json:"scriptureName"`
	Chapter          scripture.Ordinal `json:"chapter"`
	VerseNumber      scripture.Ordinal `json:"verseNumber"`
	VerseText        string            `json:"verseText"`
	MatchType        MatchType         `json:"matchType"`
	MatchText        string            `json:"matchText"`
	CommentaryAuthor string            `json:"commentaryAuthor,omitempty"`
}

// Search returns every verse and commentary in docs containing query,
// ignoring case, in document, section and verse order.
//
// An empty or whitespace-only query returns nil without scanning. A verse
// contributes at most one verse result plus one result per matching
// commentary. Results are neither ranked nor capped.
func Search(docs []*scripture.Document, query string) []Result {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	q := strings.ToLower(query)

	var results []Result
	for _, doc := range docs {
		slug, name := doc.ID(), doc.Name()

		for _, sec := range doc.Content.Sections {
			chapter := sec.Number

			for i := range sec.Verses {
				v := &sec.Verses[i]
				base := Result{
					ScriptureSlug: slug,
					ScriptureName: name,
					Chapter:       chapter,
					VerseNumber:   v.VerseNumber,
					VerseText:     v.DisplayText(),
				}

				originalHit := contains(v.OriginalText, q)
				translationHit := contains(v.EnglishTranslation, q)
				if originalHit || translationHit {
					r := base
					r.MatchType = MatchVerse
					r.MatchText = v.OriginalText
					if translationHit {
						r.MatchText = v.EnglishTranslation
					}
					results = append(results, r)
				}

				for _, c := range v.Commentaries {
					if !contains(c.Body, q) {
						continue
					}
					r := base
					r.MatchType = MatchCommentary
					r.MatchText = c.Body
					r.CommentaryAuthor = c.Author
					results = append(results, r)
				}
			}
		}
	}
	return results
}

// FilterVerses applies the same containment rule to flattened verses,
// testing book, original text, translation, joined commentaries and id.
func FilterVerses(verses []flatten.SearchableVerse, query string) []flatten.SearchableVerse {
	if strings.TrimSpace(query) == "" {
		return nil
	}
	q := strings.ToLower(query)

	var out []flatten.SearchableVerse
	for _, v := range verses {
		if contains(v.Book, q) ||
			contains(v.OriginalText, q) ||
			contains(v.EnglishTranslation, q) ||
			contains(v.CommentariesText, q) ||
			contains(v.ID, q) {
			out = append(out, v)
		}
	}
	return out
}

// contains reports whether lowered query q occurs in field, ignoring case.
func contains(field, q string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), q)
}
