package scripture

import (
	"encoding/json"
)

// CommentaryKind distinguishes the two accepted commentary shapes.
type CommentaryKind int

const (
	// PlainText is a commentary given as a bare JSON string.
	PlainText CommentaryKind = iota
	// Authored is a commentary object carrying an author and a body.
	Authored
)

func (k CommentaryKind) String() string {
	if k == Authored {
		return "authored"
	}
	return "plain"
}

// Commentary is an annotation attached to one verse.
type Commentary struct {
	Kind   CommentaryKind
	Author string
	Body   string
}

// NewPlainText returns an unattributed commentary.
func NewPlainText(body string) Commentary {
	return Commentary{Kind: PlainText, Body: body}
}

// NewAuthored returns a commentary attributed to author.
func NewAuthored(author, body string) Commentary {
	return Commentary{Kind: Authored, Author: author, Body: body}
}

// IsEmpty reports whether the commentary has no text body.
func (c Commentary) IsEmpty() bool {
	return c.Body == ""
}

// MarshalJSON writes PlainText as a string and Authored as an object.
func (c Commentary) MarshalJSON() ([]byte, error) {
	if c.Kind == PlainText {
		return json.Marshal(c.Body)
	}
	return json.Marshal(struct {
		Author     string `json:"author"`
		Commentary string `json:"commentary"`
	}{c.Author, c.Body})
}

// UnmarshalJSON never fails on well-formed JSON: a string becomes PlainText,
// an object becomes Authored, and any other value becomes an empty PlainText.
func (c *Commentary) UnmarshalJSON(data []byte) error {
	var body string
	if err := json.Unmarshal(data, &body); err == nil {
		*c = NewPlainText(body)
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		*c = Commentary{}
		return nil
	}

	author := stringField(fields, "author")
	text := stringField(fields, "commentary")
	if author == "" && text == "" {
		*c = Commentary{}
		return nil
	}
	*c = NewAuthored(author, text)
	return nil
}
