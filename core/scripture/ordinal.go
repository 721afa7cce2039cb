package scripture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Ordinal is a section or verse number. Source documents use both JSON
// numbers (47) and strings ("47", "1a"); the source spelling is preserved.
type Ordinal struct {
	text    string
	num     int
	numeric bool
	quoted  bool
}

// NewOrdinal returns a numeric ordinal.
func NewOrdinal(n int) Ordinal {
	return Ordinal{text: strconv.Itoa(n), num: n, numeric: true}
}

// ParseOrdinal returns an ordinal spelled as s. It is numeric when s is a
// base-10 integer after trimming.
func ParseOrdinal(s string) Ordinal {
	o := Ordinal{text: s, quoted: true}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		o.num = n
		o.numeric = true
	}
	return o
}

// String returns the source spelling, or "" for a missing ordinal.
func (o Ordinal) String() string {
	return o.text
}

// Int returns the numeric value and whether the ordinal is numeric.
func (o Ordinal) Int() (int, bool) {
	return o.num, o.numeric
}

// IsZero reports whether the ordinal was absent in the source.
func (o Ordinal) IsZero() bool {
	return o.text == ""
}

// Equal compares numerically when both ordinals are numeric, otherwise by
// spelling. "02" equals 2; "1a" equals only "1a".
func (o Ordinal) Equal(p Ordinal) bool {
	if o.numeric && p.numeric {
		return o.num == p.num
	}
	return o.text == p.text
}

// MarshalJSON writes numbers as numbers, quoted spellings as strings and a
// missing ordinal as null.
func (o Ordinal) MarshalJSON() ([]byte, error) {
	switch {
	case o.text == "":
		return []byte("null"), nil
	case o.numeric && !o.quoted:
		return []byte(strconv.Itoa(o.num)), nil
	default:
		return json.Marshal(o.text)
	}
}

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (o *Ordinal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = Ordinal{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = ParseOrdinal(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return err
		}
		if n, err := num.Int64(); err == nil {
			*o = Ordinal{text: num.String(), num: int(n), numeric: true}
			return nil
		}
		// Non-integer numbers keep their spelling and compare as text.
		*o = Ordinal{text: num.String()}
		return nil
	default:
		return fmt.Errorf("ordinal must be a number or string, got %s", truncate(string(data), 32))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
