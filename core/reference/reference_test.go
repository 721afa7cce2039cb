package reference

import (
	"testing"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		book     string
		chapter  string
		verse    string
		verseEnd string
	}{
		{"Bhagavad Gita 2:47", "bhagavad-gita", "2", "47", ""},
		{"bhagavad-gita 2.47", "bhagavad-gita", "2", "47", ""},
		{"gita 2.47-49", "gita", "2", "47", "49"},
		{"stotraratna 5", "stotraratna", "5", "", ""},
		{"  Tiruppavai   1 : 3 ", "tiruppavai", "1", "3", ""},
		{"Sri Bhashya 1:1a", "sri-bhashya", "1", "1a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if ref.Book() != tt.book {
				t.Errorf("Book() = %q, want %q", ref.Book(), tt.book)
			}
			if ref.Chapter != tt.chapter || ref.Verse != tt.verse || ref.VerseEnd != tt.verseEnd {
				t.Errorf("got %s/%s/%s, want %s/%s/%s",
					ref.Chapter, ref.Verse, ref.VerseEnd, tt.chapter, tt.verse, tt.verseEnd)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "2:47", "gita", "gita 2:"} {
		_, err := Parse(input)
		if err == nil {
			t.Errorf("Parse(%q) should fail", input)
			continue
		}
		if !errors.IsInvalidInput(err) {
			t.Errorf("Parse(%q) error = %v, want invalid input", input, err)
		}
	}
}

func TestReferenceString(t *testing.T) {
	ref, err := Parse("Bhagavad Gita 2.47-48")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ref.String(), "bhagavad-gita 2:47-48"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func library() []*scripture.Document {
	verses := func(nums ...int) []scripture.Verse {
		var out []scripture.Verse
		for _, n := range nums {
			out = append(out, scripture.Verse{VerseNumber: scripture.NewOrdinal(n)})
		}
		return out
	}
	return []*scripture.Document{
		{
			Metadata: scripture.Metadata{ScriptureName: "Bhagavad Gita", Slug: "gita"},
			Content: scripture.Content{Sections: []scripture.Section{
				{Number: scripture.NewOrdinal(1), Verses: verses(1, 2)},
				{Number: scripture.NewOrdinal(2), Verses: verses(46, 47, 48, 49)},
			}},
		},
		{
			Metadata: scripture.Metadata{ScriptureName: "Stotra Ratna", Slug: "stotra-ratna"},
			Content: scripture.Content{Sections: []scripture.Section{
				{Number: scripture.NewOrdinal(1), Verses: verses(1, 2, 3, 4, 5)},
			}},
		},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		input  string
		slug   string
		verses []int
	}{
		{"gita 2:47", "gita", []int{47}},
		{"Bhagavad Gita 2.47", "gita", []int{47}},
		{"gita 2.47-49", "gita", []int{47, 48, 49}},
		{"gita 1", "gita", []int{1, 2}},
		{"stotraratna 5", "stotra-ratna", []int{5}},
		{"Stotra Ratna 1:3", "stotra-ratna", []int{3}},
	}

	docs := library()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			ref, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			m, err := Resolve(docs, ref)
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if m.Document.ID() != tt.slug {
				t.Errorf("document = %q, want %q", m.Document.ID(), tt.slug)
			}
			var got []int
			for _, v := range m.Verses {
				n, _ := v.VerseNumber.Int()
				got = append(got, n)
			}
			if len(got) != len(tt.verses) {
				t.Fatalf("verses = %v, want %v", got, tt.verses)
			}
			for i := range got {
				if got[i] != tt.verses[i] {
					t.Errorf("verses = %v, want %v", got, tt.verses)
					break
				}
			}
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	docs := library()
	for _, input := range []string{"ramayana 1:1", "gita 9:1", "gita 2:99", "gita 2.48-99"} {
		ref, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		if _, err := Resolve(docs, ref); !errors.IsNotFound(err) {
			t.Errorf("Resolve(%q) error = %v, want not found", input, err)
		}
	}
}
