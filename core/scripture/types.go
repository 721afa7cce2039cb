package scripture

import (
	"path"
	"strings"
)

// Sentinels used when a document omits identifying metadata.
const (
	UnknownSlug      = "unknown-slug"
	UnknownScripture = "Unknown Scripture"
)

// Document is one complete scripture: metadata plus an ordered tree of
// sections, verses and commentaries. Documents are immutable after load.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Content  Content  `json:"content"`

	// Source is the file or archive entry the document was read from.
	Source string `json:"-"`
}

// Metadata describes a document.
type Metadata struct {
	ScriptureName     string `json:"scripture_name"`
	Slug              string `json:"slug"`
	Author            string `json:"author"`
	Category          string `json:"category"`
	YearOfComposition string `json:"year_of_composition"`
	TotalChapters     int    `json:"total_chapters"`
	TotalVerses       int    `json:"total_verses"`
}

// Content holds the ordered sections of a document.
type Content struct {
	Sections []Section `json:"sections"`
}

// Section is a chapter-equivalent subdivision of a document.
type Section struct {
	Number Ordinal `json:"number"`
	Title  string  `json:"title"`
	Verses []Verse `json:"verses"`
}

// Verse is the atomic unit of content within a section.
type Verse struct {
	VerseNumber        Ordinal      `json:"verse_number"`
	OriginalText       string       `json:"original_text"`
	EnglishTranslation string       `json:"english_translation"`
	Commentaries       []Commentary `json:"commentaries"`
}

// ID returns the document's slug, falling back to the source file stem and
// then to UnknownSlug.
func (d *Document) ID() string {
	if d.Metadata.Slug != "" {
		return d.Metadata.Slug
	}
	if stem := SourceStem(d.Source); stem != "" {
		return stem
	}
	return UnknownSlug
}

// Name returns the scripture name or UnknownScripture.
func (d *Document) Name() string {
	if d.Metadata.ScriptureName != "" {
		return d.Metadata.ScriptureName
	}
	return UnknownScripture
}

// CategorySlug returns the navigation key for the document's category.
func (d *Document) CategorySlug() string {
	return Slugify(d.Metadata.Category)
}

// ScriptureSlug returns the navigation key derived from the scripture name.
func (d *Document) ScriptureSlug() string {
	return Slugify(d.Name())
}

// VerseCount returns the number of verses across all sections.
func (d *Document) VerseCount() int {
	n := 0
	for i := range d.Content.Sections {
		n += len(d.Content.Sections[i].Verses)
	}
	return n
}

// Section returns the first section numbered n.
func (d *Document) Section(n Ordinal) (*Section, bool) {
	for i := range d.Content.Sections {
		if d.Content.Sections[i].Number.Equal(n) {
			return &d.Content.Sections[i], true
		}
	}
	return nil, false
}

// Verse returns the first verse numbered n.
func (s *Section) Verse(n Ordinal) (*Verse, bool) {
	for i := range s.Verses {
		if s.Verses[i].VerseNumber.Equal(n) {
			return &s.Verses[i], true
		}
	}
	return nil, false
}

// DisplayText returns the translation, or the original text when there is
// no translation.
func (v *Verse) DisplayText() string {
	if v.EnglishTranslation != "" {
		return v.EnglishTranslation
	}
	return v.OriginalText
}

// Commentators returns the distinct authors of the verse's commentaries in
// source order.
func (v *Verse) Commentators() []string {
	var authors []string
	seen := make(map[string]bool)
	for _, c := range v.Commentaries {
		if c.Author == "" || seen[c.Author] {
			continue
		}
		seen[c.Author] = true
		authors = append(authors, c.Author)
	}
	return authors
}

// SourceStem returns the base name of source without its extension.
// "data/scriptures/bhagavad-gita.json" becomes "bhagavad-gita".
func SourceStem(source string) string {
	if source == "" {
		return ""
	}
	base := path.Base(strings.ReplaceAll(source, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
