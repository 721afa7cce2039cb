// Package flatten turns scripture documents into the flat verse records
// served by the listing endpoint and matched by the coarse search.
package flatten

import (
	"strings"

	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// SearchableVerse is one verse with its document identity inlined. Chapter
// and VerseNumber keep the source spelling, so numbers stay JSON numbers.
type SearchableVerse struct {
	ID                 string            `json:"id"`
	Book               string            `json:"book"`
	Chapter            scripture.Ordinal `json:"chapter"`
	VerseNumber        scripture.Ordinal `json:"verse_number"`
	OriginalText       string            `json:"original_text"`
	EnglishTranslation string            `json:"english_translation"`
	CommentariesText   string            `json:"commentaries_text"`
}

// Flatten returns one SearchableVerse per verse in document, section and
// verse order.
func Flatten(docs []*scripture.Document) []SearchableVerse {
	n := 0
	for _, d := range docs {
		n += d.VerseCount()
	}

	out := make([]SearchableVerse, 0, n)
	for _, d := range docs {
		out = appendDocument(out, d)
	}
	return out
}

// FlattenDocument flattens a single document.
func FlattenDocument(doc *scripture.Document) []SearchableVerse {
	return appendDocument(make([]SearchableVerse, 0, doc.VerseCount()), doc)
}

func appendDocument(out []SearchableVerse, doc *scripture.Document) []SearchableVerse {
	slug := doc.ID()
	book := doc.Name()

	for _, sec := range doc.Content.Sections {
		for _, v := range sec.Verses {
			out = append(out, SearchableVerse{
				ID:                 scripture.VerseID(slug, sec.Number, v.VerseNumber),
				Book:               book,
				Chapter:            sec.Number,
				VerseNumber:        v.VerseNumber,
				OriginalText:       v.OriginalText,
				EnglishTranslation: v.EnglishTranslation,
				CommentariesText:   JoinCommentaries(v.Commentaries),
			})
		}
	}
	return out
}

// JoinCommentaries joins the non-empty commentary bodies with one space.
func JoinCommentaries(comms []scripture.Commentary) string {
	var b strings.Builder
	for _, c := range comms {
		if c.IsEmpty() {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Body)
	}
	return b.String()
}
