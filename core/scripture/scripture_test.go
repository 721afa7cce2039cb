package scripture

import (
	"encoding/json"
	"testing"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/google/go-cmp/cmp"
)

const gitaJSON = `{
  "metadata": {
    "scripture_name": "Bhagavad Gita",
    "slug": "bhagavad-gita",
    "author": "Vyasa",
    "category": "Sri Vaishnava Texts",
    "total_chapters": 18,
    "total_verses": "700"
  },
  "content": {
    "sections": [
      {
        "number": 2,
        "title": "Sankhya Yoga",
        "verses": [
          {
            "verse_number": "47",
            "original_text": "कर्मण्येवाधिकारस्ते",
            "english_translation": "You have a right to perform your duties, but not to the fruits.",
            "commentaries": [
              {"author": "Ramanuja", "commentary": "Action without attachment to motive."},
              "A plain note."
            ]
          }
        ]
      }
    ]
  }
}`

func TestOrdinalUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		text    string
		num     int
		numeric bool
		wantErr bool
	}{
		{"number", `47`, "47", 47, true, false},
		{"numeric string", `"47"`, "47", 47, true, false},
		{"alpha string", `"1a"`, "1a", 0, false, false},
		{"null", `null`, "", 0, false, false},
		{"float", `1.5`, "1.5", 0, false, false},
		{"object", `{}`, "", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o Ordinal
			err := json.Unmarshal([]byte(tt.input), &o)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if o.String() != tt.text {
				t.Errorf("String() = %q, want %q", o.String(), tt.text)
			}
			n, ok := o.Int()
			if ok != tt.numeric || n != tt.num {
				t.Errorf("Int() = (%d, %v), want (%d, %v)", n, ok, tt.num, tt.numeric)
			}
		})
	}
}

func TestOrdinalMarshalPreservesSpelling(t *testing.T) {
	tests := []struct {
		in   Ordinal
		want string
	}{
		{NewOrdinal(2), `2`},
		{ParseOrdinal("47"), `"47"`},
		{ParseOrdinal("1a"), `"1a"`},
		{Ordinal{}, `null`},
	}
	for _, tt := range tests {
		got, err := json.Marshal(tt.in)
		if err != nil {
			t.Fatalf("Marshal(%v) error: %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.in.String(), got, tt.want)
		}
	}
}

func TestOrdinalEqual(t *testing.T) {
	if !ParseOrdinal("02").Equal(NewOrdinal(2)) {
		t.Error(`"02" should equal 2`)
	}
	if ParseOrdinal("1a").Equal(ParseOrdinal("1")) {
		t.Error(`"1a" should not equal "1"`)
	}
	if !ParseOrdinal("1a").Equal(ParseOrdinal("1a")) {
		t.Error(`"1a" should equal "1a"`)
	}
}

func TestCommentaryUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Commentary
	}{
		{"plain string", `"a note"`, NewPlainText("a note")},
		{"authored", `{"author":"Ramanuja","commentary":"text"}`, NewAuthored("Ramanuja", "text")},
		{"authored missing body", `{"author":"Ramanuja"}`, NewAuthored("Ramanuja", "")},
		{"body without author", `{"commentary":"text"}`, NewAuthored("", "text")},
		{"empty object", `{}`, Commentary{}},
		{"number", `42`, Commentary{}},
		{"null", `null`, Commentary{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Commentary
			if err := json.Unmarshal([]byte(tt.input), &c); err != nil {
				t.Fatalf("Unmarshal error: %v", err)
			}
			if diff := cmp.Diff(tt.want, c); diff != "" {
				t.Errorf("commentary mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommentaryMarshal(t *testing.T) {
	got, _ := json.Marshal([]Commentary{NewPlainText("p"), NewAuthored("A", "b")})
	want := `["p",{"author":"A","commentary":"b"}]`
	if string(got) != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}
}

func TestDecodeDocument(t *testing.T) {
	doc, issues, err := DecodeDocument([]byte(gitaJSON), "data/scriptures/gita.json")
	if err != nil {
		t.Fatalf("DecodeDocument error: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("unexpected issues: %v", issues)
	}

	if doc.ID() != "bhagavad-gita" {
		t.Errorf("ID() = %q, want bhagavad-gita", doc.ID())
	}
	if doc.Metadata.TotalVerses != 700 {
		t.Errorf("TotalVerses = %d, want 700", doc.Metadata.TotalVerses)
	}
	if doc.CategorySlug() != "sri-vaishnava-texts" {
		t.Errorf("CategorySlug() = %q", doc.CategorySlug())
	}
	if doc.VerseCount() != 1 {
		t.Fatalf("VerseCount() = %d, want 1", doc.VerseCount())
	}

	sec, ok := doc.Section(NewOrdinal(2))
	if !ok {
		t.Fatal("section 2 not found")
	}
	v, ok := sec.Verse(NewOrdinal(47))
	if !ok {
		t.Fatal("verse 47 not found")
	}
	if diff := cmp.Diff([]string{"Ramanuja"}, v.Commentators()); diff != "" {
		t.Errorf("Commentators mismatch (-want +got):\n%s", diff)
	}
	if got := v.Commentaries[1]; got.Kind != PlainText || got.Body != "A plain note." {
		t.Errorf("second commentary = %+v", got)
	}
}

func TestDecodeDocumentFallbacks(t *testing.T) {
	doc, _, err := DecodeDocument([]byte(`{"content":{"sections":[]}}`), "corpus/stotra-ratna.json")
	if err != nil {
		t.Fatalf("DecodeDocument error: %v", err)
	}
	if doc.ID() != "stotra-ratna" {
		t.Errorf("ID() = %q, want file stem", doc.ID())
	}
	if doc.Name() != UnknownScripture {
		t.Errorf("Name() = %q, want %q", doc.Name(), UnknownScripture)
	}

	anon := &Document{}
	if anon.ID() != UnknownSlug {
		t.Errorf("ID() = %q, want %q", anon.ID(), UnknownSlug)
	}
}

func TestDecodeDocumentSkipsMalformedParts(t *testing.T) {
	input := `{
	  "metadata": {"slug": "x"},
	  "content": {"sections": [
	    "not a section",
	    {"number": 1},
	    {"number": 2, "verses": "nope"},
	    {"number": 3, "verses": [42, {"verse_number": 1, "original_text": null}]}
	  ]}
	}`

	doc, issues, err := DecodeDocument([]byte(input), "x.json")
	if err != nil {
		t.Fatalf("DecodeDocument error: %v", err)
	}
	if len(doc.Content.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(doc.Content.Sections))
	}
	if len(doc.Content.Sections[0].Verses) != 1 {
		t.Fatalf("verses = %d, want 1", len(doc.Content.Sections[0].Verses))
	}
	if doc.Content.Sections[0].Verses[0].OriginalText != "" {
		t.Error("null original_text should default to empty")
	}

	wantPaths := []string{"sections[0]", "sections[1]", "sections[2]", "sections[3].verses[0]"}
	var gotPaths []string
	for _, is := range issues {
		gotPaths = append(gotPaths, is.Path)
	}
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Errorf("issue paths mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDocumentRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"invalid json", `{"metadata": `},
		{"array document", `[]`},
		{"null document", `null`},
		{"metadata string", `{"metadata": "x"}`},
		{"content array", `{"content": []}`},
		{"sections object", `{"content": {"sections": {}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeDocument([]byte(tt.input), "bad.json")
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *errors.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Path != "bad.json" {
				t.Errorf("Path = %q, want bad.json", pe.Path)
			}
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Bhagavad Gita":          "bhagavad-gita",
		"Sri Vaishnava  Stotras": "sri-vaishnava-stotras",
		"Tab\tand\nnewline":      "tab-and-newline",
		"already-slugged":        "already-slugged",
		"":                       "",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectScript(t *testing.T) {
	tests := []struct {
		text string
		want Script
	}{
		{"कर्मण्येवाधिकारस्ते", ScriptDevanagari},
		{"திருப்பாவை", ScriptTamil},
		{"karmany evadhikaras te", ScriptLatin},
		{"कर्म திரு", ScriptMixed},
		{"", ScriptLatin},
	}
	for _, tt := range tests {
		if got := DetectScript(tt.text); got != tt.want {
			t.Errorf("DetectScript(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	doc := &Document{
		Metadata: Metadata{Slug: "g"},
		Content: Content{Sections: []Section{
			{Number: NewOrdinal(1), Verses: []Verse{
				{VerseNumber: NewOrdinal(1)},
				{VerseNumber: ParseOrdinal("1")},
				{VerseNumber: NewOrdinal(2)},
			}},
			{Number: NewOrdinal(1), Verses: []Verse{
				{VerseNumber: NewOrdinal(3)},
			}},
		}},
	}

	issues := Validate(doc)
	var paths []string
	for _, is := range issues {
		paths = append(paths, is.Path)
	}
	want := []string{"sections[0].verses[1]", "sections[1]"}
	if diff := cmp.Diff(want, paths); diff != "" {
		t.Errorf("issue paths mismatch (-want +got):\n%s", diff)
	}

	clean := &Document{Content: Content{Sections: []Section{
		{Number: NewOrdinal(1), Verses: []Verse{{VerseNumber: NewOrdinal(1)}, {VerseNumber: NewOrdinal(2)}}},
	}}}
	if got := Validate(clean); len(got) != 0 {
		t.Errorf("Validate(clean) = %v, want none", got)
	}
}
