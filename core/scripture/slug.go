package scripture

import (
	"regexp"
	"strings"
	"unicode"
)

// whitespaceRun matches runs of whitespace replaced by Slugify.
var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify case-normalizes s and replaces each run of whitespace with "-".
// "Sri Vaishnava  Stotras" becomes "sri-vaishnava-stotras".
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(s), "-")
}

// Script classifies the writing system of a text.
type Script string

const (
	ScriptDevanagari Script = "devanagari"
	ScriptTamil      Script = "tamil"
	ScriptLatin      Script = "latin"
	ScriptMixed      Script = "mixed"
)

// DetectScript reports whether text contains Devanagari, Tamil, both, or
// neither (latin).
func DetectScript(text string) Script {
	var devanagari, tamil bool
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Devanagari):
			devanagari = true
		case unicode.In(r, unicode.Tamil):
			tamil = true
		}
		if devanagari && tamil {
			return ScriptMixed
		}
	}

	switch {
	case devanagari:
		return ScriptDevanagari
	case tamil:
		return ScriptTamil
	default:
		return ScriptLatin
	}
}
