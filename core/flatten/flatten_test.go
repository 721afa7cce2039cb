package flatten

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/FocuswithJustin/Granthalaya/core/scripture"
	"github.com/google/go-cmp/cmp"
)

func gita() *scripture.Document {
	return &scripture.Document{
		Metadata: scripture.Metadata{ScriptureName: "Bhagavad Gita", Slug: "gita"},
		Content: scripture.Content{Sections: []scripture.Section{
			{Number: scripture.NewOrdinal(2), Verses: []scripture.Verse{
				{
					VerseNumber:        scripture.NewOrdinal(47),
					OriginalText:       "karmany evadhikaras te",
					EnglishTranslation: "You have a right to action alone",
					Commentaries: []scripture.Commentary{
						scripture.NewAuthored("Ramanuja", "Do not act for the fruits."),
						{},
						scripture.NewPlainText("Second note."),
					},
				},
				{VerseNumber: scripture.ParseOrdinal("48")},
			}},
		}},
	}
}

func TestFlatten(t *testing.T) {
	anon := &scripture.Document{
		Source: "corpus/anon.json",
		Content: scripture.Content{Sections: []scripture.Section{
			{Number: scripture.ParseOrdinal("1a"), Verses: []scripture.Verse{{VerseNumber: scripture.NewOrdinal(1)}}},
		}},
	}

	got := Flatten([]*scripture.Document{gita(), anon})
	want := []SearchableVerse{
		{
			ID:                 "gita-2-47",
			Book:               "Bhagavad Gita",
			Chapter:            scripture.NewOrdinal(2),
			VerseNumber:        scripture.NewOrdinal(47),
			OriginalText:       "karmany evadhikaras te",
			EnglishTranslation: "You have a right to action alone",
			CommentariesText:   "Do not act for the fruits. Second note.",
		},
		{ID: "gita-2-48", Book: "Bhagavad Gita", Chapter: scripture.NewOrdinal(2), VerseNumber: scripture.ParseOrdinal("48")},
		{ID: "anon-1a-1", Book: scripture.UnknownScripture, Chapter: scripture.ParseOrdinal("1a"), VerseNumber: scripture.NewOrdinal(1)},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := Flatten(nil); len(got) != 0 {
		t.Errorf("Flatten(nil) = %v, want empty", got)
	}
	if got := FlattenDocument(&scripture.Document{}); len(got) != 0 {
		t.Errorf("FlattenDocument(empty) = %v, want empty", got)
	}
}

func TestFlattenCountMatchesVerses(t *testing.T) {
	doc := gita()
	if got, want := len(FlattenDocument(doc)), doc.VerseCount(); got != want {
		t.Errorf("len = %d, want %d", got, want)
	}
}

func TestFlattenKeepsSourceNumbers(t *testing.T) {
	doc, _, err := scripture.DecodeDocument([]byte(`{
		"metadata": {"scripture_name": "Bhagavad Gita", "slug": "gita"},
		"content": {"sections": [{"number": 2, "verses": [
			{"verse_number": 47, "original_text": "karmany"},
			{"verse_number": "48a", "original_text": "yogasthah"}
		]}]}
	}`), "gita.json")
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(FlattenDocument(doc))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`"id":"gita-2-47","book":"Bhagavad Gita","chapter":2,"verse_number":47,`,
		`"id":"gita-2-48a","book":"Bhagavad Gita","chapter":2,"verse_number":"48a",`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("listing JSON missing %s\n%s", want, data)
		}
	}
}
