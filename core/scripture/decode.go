package scripture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

// Issue is a non-fatal problem found while decoding or validating a document.
type Issue struct {
	Path    string // Location inside the document, e.g. "sections[1].verses[4]"
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// DecodeDocument decodes one JSON scripture document read from source.
//
// It returns a *errors.ParseError when data is not valid JSON or when the
// document, its metadata, its content or content.sections has the wrong
// shape. Malformed sections and verses are skipped and returned as issues.
func DecodeDocument(data []byte, source string) (*Document, []Issue, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, nil, errors.WrapParse("JSON", source, err)
	}
	if top == nil {
		return nil, nil, errors.NewParse("JSON", source, "document is null")
	}

	doc := &Document{Source: source}

	if raw, ok := top["metadata"]; ok && !isNull(raw) {
		var meta map[string]json.RawMessage
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, nil, errors.NewParse("JSON", source, "metadata is not an object")
		}
		doc.Metadata = decodeMetadata(meta)
	}

	var issues []Issue
	if raw, ok := top["content"]; ok && !isNull(raw) {
		var content map[string]json.RawMessage
		if err := json.Unmarshal(raw, &content); err != nil {
			return nil, nil, errors.NewParse("JSON", source, "content is not an object")
		}
		if rawSections, ok := content["sections"]; ok && !isNull(rawSections) {
			var sections []json.RawMessage
			if err := json.Unmarshal(rawSections, &sections); err != nil {
				return nil, nil, errors.NewParse("JSON", source, "content.sections is not an array")
			}
			doc.Content.Sections, issues = decodeSections(sections)
		}
	}

	return doc, issues, nil
}

func decodeMetadata(m map[string]json.RawMessage) Metadata {
	return Metadata{
		ScriptureName:     stringField(m, "scripture_name"),
		Slug:              stringField(m, "slug"),
		Author:            stringField(m, "author"),
		Category:          stringField(m, "category"),
		YearOfComposition: stringField(m, "year_of_composition"),
		TotalChapters:     intField(m, "total_chapters"),
		TotalVerses:       intField(m, "total_verses"),
	}
}

func decodeSections(raws []json.RawMessage) ([]Section, []Issue) {
	sections := make([]Section, 0, len(raws))
	var issues []Issue

	for i, raw := range raws {
		at := fmt.Sprintf("sections[%d]", i)

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			issues = append(issues, Issue{Path: at, Message: "section is not an object, skipped"})
			continue
		}

		var verses []json.RawMessage
		rawVerses, ok := fields["verses"]
		if !ok || isNull(rawVerses) {
			issues = append(issues, Issue{Path: at, Message: "section has no verses array, skipped"})
			continue
		}
		if err := json.Unmarshal(rawVerses, &verses); err != nil {
			issues = append(issues, Issue{Path: at, Message: "section verses is not an array, skipped"})
			continue
		}

		section := Section{
			Number: ordinalField(fields, "number"),
			Title:  stringField(fields, "title"),
			Verses: make([]Verse, 0, len(verses)),
		}

		for j, rawVerse := range verses {
			verse, ok := decodeVerse(rawVerse)
			if !ok {
				issues = append(issues, Issue{
					Path:    fmt.Sprintf("%s.verses[%d]", at, j),
					Message: "verse is not an object, skipped",
				})
				continue
			}
			section.Verses = append(section.Verses, verse)
		}

		sections = append(sections, section)
	}

	return sections, issues
}

func decodeVerse(raw json.RawMessage) (Verse, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Verse{}, false
	}

	verse := Verse{
		VerseNumber:        ordinalField(fields, "verse_number"),
		OriginalText:       stringField(fields, "original_text"),
		EnglishTranslation: stringField(fields, "english_translation"),
	}

	if rawComms, ok := fields["commentaries"]; ok {
		var comms []Commentary
		// A non-array commentaries value means "no commentaries".
		if err := json.Unmarshal(rawComms, &comms); err == nil {
			verse.Commentaries = comms
		}
	}

	return verse, true
}

// stringField returns a JSON string field, the literal spelling of a JSON
// number, or "" for anything else.
func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		return num.String()
	}
	return ""
}

// intField returns a JSON number or numeric string field, or 0.
func intField(m map[string]json.RawMessage, key string) int {
	raw, ok := m[key]
	if !ok {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return 0
}

func ordinalField(m map[string]json.RawMessage, key string) Ordinal {
	raw, ok := m[key]
	if !ok {
		return Ordinal{}
	}
	var o Ordinal
	if err := o.UnmarshalJSON(raw); err != nil {
		return Ordinal{}
	}
	return o
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
