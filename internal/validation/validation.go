// Package validation checks request parameters and operator-supplied paths
// before they reach the corpus. Failures are *errors.ValidationError so
// handlers can map them to 400 responses.
package validation

import (
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

// Limits applied to request input.
const (
	// MaxQueryLength bounds a search query, in runes.
	MaxQueryLength = 256
	// MaxSegmentLength bounds one path segment such as a slug or verse number.
	MaxSegmentLength = 128
	// MaxCommentators bounds the commentator filter list.
	MaxCommentators = 32
	// MaxPathLength bounds operator-supplied filesystem paths.
	MaxPathLength = 4096
)

// ValidateQuery checks a search query. Surrounding whitespace is preserved;
// the caller decides what an empty query means.
func ValidateQuery(q string) error {
	if !utf8.ValidString(q) {
		return errors.NewValidation("q", "query is not valid UTF-8")
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return errors.NewValidation("q", "query exceeds "+strconv.Itoa(MaxQueryLength)+" characters")
	}
	if hasControl(q, true) {
		return errors.NewValidation("q", "query contains control characters")
	}
	return nil
}

// ValidateSegment checks one URL path segment named field.
func ValidateSegment(field, s string) error {
	switch {
	case s == "":
		return errors.NewValidation(field, "must not be empty")
	case len(s) > MaxSegmentLength:
		return errors.NewValidation(field, "too long")
	case !utf8.ValidString(s):
		return errors.NewValidation(field, "not valid UTF-8")
	case s == "." || s == ".." || strings.ContainsAny(s, `/\`):
		return errors.NewValidation(field, "must be a single path segment")
	case hasControl(s, false):
		return errors.NewValidation(field, "contains control characters")
	}
	return nil
}

// ParseCommentators splits a comma-separated commentator filter. Names are
// trimmed, empty entries dropped and duplicates removed, keeping the first
// spelling.
func ParseCommentators(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if hasControl(name, false) {
			return nil, errors.NewValidation("commentators", "contains control characters")
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	if len(out) > MaxCommentators {
		return nil, errors.NewValidation("commentators", "more than "+strconv.Itoa(MaxCommentators)+" commentators")
	}
	return out, nil
}

// ParseLimit parses an optional positive integer parameter. An empty value
// yields def; values above max are clamped.
func ParseLimit(field, raw string, def, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.NewValidation(field, "must be a positive integer")
	}
	if max > 0 && n > max {
		n = max
	}
	return n, nil
}

// ValidatePath checks an operator-supplied path for length and control
// characters.
func ValidatePath(path string) error {
	switch {
	case path == "":
		return errors.NewValidation("path", "must not be empty")
	case len(path) > MaxPathLength:
		return errors.NewValidation("path", "too long")
	case hasControl(path, false):
		return errors.NewValidation("path", "contains control characters")
	}
	return nil
}

// ValidateCorpusPath checks that path is usable as a corpus location:
// directories for the dir source, regular files otherwise.
func ValidateCorpusPath(path string, wantDir bool) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.NewIO("stat corpus", path, err)
	}
	if wantDir && !info.IsDir() {
		return errors.NewValidation("path", path+" is not a directory")
	}
	if !wantDir && !info.Mode().IsRegular() {
		return errors.NewValidation("path", path+" is not a regular file")
	}
	return nil
}

func hasControl(s string, allowSpace bool) bool {
	for _, r := range s {
		if !unicode.IsControl(r) {
			continue
		}
		if allowSpace && (r == '\t' || r == '\n' || r == '\r') {
			continue
		}
		return true
	}
	return false
}
