// Package reference parses and resolves human-written verse references such
// as "Bhagavad Gita 2:47", "bhagavad-gita 2.47", "gita 2.47-49" or
// "stotra-ratna 5".
package reference

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// Reference is a parsed verse reference.
type Reference struct {
	Words    []string `parser:"@Word+"`
	Chapter  string   `parser:"@Number"`
	Verse    string   `parser:"( ( \":\" | \".\" ) @Number"`
	VerseEnd string   `parser:"  ( \"-\" @Number )? )?"`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Book words: any script, with inner hyphens and apostrophes.
	{Name: "Word", Pattern: `\p{L}[\p{L}\p{M}\p{N}'-]*`},
	// Chapter and verse numbers, optionally with a letter suffix ("1a").
	{Name: "Number", Pattern: `\d+[a-z]?`},
	{Name: "Punct", Pattern: `[:.\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[Reference](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
)

// Parse parses input. Errors are *errors.ValidationError.
func Parse(input string) (*Reference, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.NewValidation("ref", "reference is empty")
	}
	ref, err := referenceParser.ParseString("", input)
	if err != nil {
		return nil, &errors.ValidationError{
			Field:   "ref",
			Message: fmt.Sprintf("cannot parse %q", input),
			Err:     err,
		}
	}
	return ref, nil
}

// Book returns the book words as a slug.
func (r *Reference) Book() string {
	return scripture.Slugify(strings.Join(r.Words, " "))
}

// String returns the canonical "book chapter[:verse[-end]]" form.
func (r *Reference) String() string {
	var sb strings.Builder
	sb.WriteString(r.Book())
	sb.WriteString(" ")
	sb.WriteString(r.Chapter)
	if r.Verse != "" {
		sb.WriteString(":")
		sb.WriteString(r.Verse)
		if r.VerseEnd != "" {
			sb.WriteString("-")
			sb.WriteString(r.VerseEnd)
		}
	}
	return sb.String()
}

// Match is the passage a reference resolves to.
type Match struct {
	Document *scripture.Document
	Section  *scripture.Section
	Verses   []*scripture.Verse
}

// Resolve finds the passage ref names in docs.
//
// The book matches a document id, its slugified name, or either with the
// hyphens removed ("stotraratna"). A reference without a verse names a whole
// chapter, except in single-section documents where the number is the verse.
func Resolve(docs []*scripture.Document, ref *Reference) (*Match, error) {
	doc := findDocument(docs, ref.Book())
	if doc == nil {
		return nil, errors.NewNotFound("scripture", ref.Book())
	}

	chapter, verse, verseEnd := ref.Chapter, ref.Verse, ref.VerseEnd
	if verse == "" && len(doc.Content.Sections) == 1 {
		chapter, verse = doc.Content.Sections[0].Number.String(), ref.Chapter
	}

	sec, ok := doc.Section(scripture.ParseOrdinal(chapter))
	if !ok {
		return nil, errors.NewNotFound("chapter", doc.ID()+" "+chapter)
	}
	m := &Match{Document: doc, Section: sec}

	if verse == "" {
		for i := range sec.Verses {
			m.Verses = append(m.Verses, &sec.Verses[i])
		}
		return m, nil
	}

	if verseEnd == "" {
		v, ok := sec.Verse(scripture.ParseOrdinal(verse))
		if !ok {
			return nil, errors.NewNotFound("verse", ref.String())
		}
		m.Verses = []*scripture.Verse{v}
		return m, nil
	}

	// Range: every verse from the first to the last named, in source order.
	start, end := scripture.ParseOrdinal(verse), scripture.ParseOrdinal(verseEnd)
	in := false
	for i := range sec.Verses {
		v := &sec.Verses[i]
		if v.VerseNumber.Equal(start) {
			in = true
		}
		if in {
			m.Verses = append(m.Verses, v)
		}
		if in && v.VerseNumber.Equal(end) {
			return m, nil
		}
	}
	return nil, errors.NewNotFound("verse range", ref.String())
}

func findDocument(docs []*scripture.Document, book string) *scripture.Document {
	compact := strings.ReplaceAll(book, "-", "")
	for _, d := range docs {
		for _, key := range []string{d.ID(), scripture.Slugify(d.Name())} {
			key = strings.ToLower(key)
			if key == book || strings.ReplaceAll(key, "-", "") == compact {
				return d
			}
		}
	}
	return nil
}
