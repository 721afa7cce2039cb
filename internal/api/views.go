package api

import (
	"strings"

	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// DocumentSummary describes one scripture in navigation listings.
type DocumentSummary struct {
	Slug              string `json:"slug"`
	Name              string `json:"name"`
	ScriptureSlug     string `json:"scriptureSlug"`
	Author            string `json:"author,omitempty"`
	Category          string `json:"category"`
	CategorySlug      string `json:"categorySlug"`
	YearOfComposition string `json:"yearOfComposition,omitempty"`
	TotalChapters     int    `json:"totalChapters"`
	TotalVerses       int    `json:"totalVerses"`
	Verses            int    `json:"verses"`
}

func summarize(d *scripture.Document) DocumentSummary {
	return DocumentSummary{
		Slug:              d.ID(),
		Name:              d.Name(),
		ScriptureSlug:     d.ScriptureSlug(),
		Author:            d.Metadata.Author,
		Category:          d.Metadata.Category,
		CategorySlug:      d.CategorySlug(),
		YearOfComposition: d.Metadata.YearOfComposition,
		TotalChapters:     d.Metadata.TotalChapters,
		TotalVerses:       d.Metadata.TotalVerses,
		Verses:            d.VerseCount(),
	}
}

// DocumentView is a whole scripture.
type DocumentView struct {
	DocumentSummary
	Sections []SectionView `json:"sections"`
}

// SectionView is one section of a DocumentView.
type SectionView struct {
	Number scripture.Ordinal `json:"number"`
	Title  string            `json:"title"`
	Verses []VerseView       `json:"verses"`
}

// CommentaryView is one commentary on a verse.
type CommentaryView struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

// VerseView is a verse with its commentaries.
type VerseView struct {
	VerseNumber        scripture.Ordinal `json:"verseNumber"`
	OriginalText       string            `json:"originalText"`
	EnglishTranslation string            `json:"englishTranslation"`
	Script             scripture.Script  `json:"script"`
	Commentaries       []CommentaryView  `json:"commentaries"`
}

// VerseDetail is a single verse with its neighbours for paging.
type VerseDetail struct {
	Scripture    DocumentSummary   `json:"scripture"`
	Chapter      scripture.Ordinal `json:"chapter"`
	SectionTitle string            `json:"sectionTitle"`
	VerseView
	// Commentators lists every author on the verse, before filtering.
	Commentators []string `json:"commentators"`
	Selected     []string `json:"selectedCommentators"`
	Position     int      `json:"position"`
	Total        int      `json:"total"`
	Prev         string   `json:"prev,omitempty"`
	Next         string   `json:"next,omitempty"`
}

// PassageView is the result of a reference lookup.
type PassageView struct {
	Reference    string            `json:"reference"`
	Scripture    DocumentSummary   `json:"scripture"`
	Chapter      scripture.Ordinal `json:"chapter"`
	SectionTitle string            `json:"sectionTitle"`
	Verses       []VerseView       `json:"verses"`
}

// SearchResponse wraps the results of any search mode.
type SearchResponse struct {
	Query   string `json:"query"`
	Mode    string `json:"mode"`
	Total   int    `json:"total"`
	Results any    `json:"results"`
}

// ListingError is the listing endpoint's failure body.
type ListingError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Provider    string `json:"provider"`
	Documents   int    `json:"documents"`
	Verses      int    `json:"verses"`
	Generation  string `json:"generation,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Clients     int    `json:"websocketClients"`
}

// ReloadResult reports an admin reload.
type ReloadResult struct {
	Generation  string `json:"generation"`
	Fingerprint string `json:"fingerprint"`
	Documents   int    `json:"documents"`
	Verses      int    `json:"verses"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	DurationMS  int64  `json:"durationMs"`
}

// PreferencesView is returned by the preferences endpoints.
type PreferencesView struct {
	ClientID string `json:"clientId"`
	State    any    `json:"state"`
}

// verseView renders v, keeping only commentaries by the selected authors.
// With no selection every commentary is kept.
func verseView(v *scripture.Verse, selected []string) VerseView {
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		want[strings.ToLower(s)] = true
	}

	comms := make([]CommentaryView, 0, len(v.Commentaries))
	for _, c := range v.Commentaries {
		if c.IsEmpty() {
			continue
		}
		if len(want) > 0 && !want[strings.ToLower(c.Author)] {
			continue
		}
		comms = append(comms, CommentaryView{Author: c.Author, Text: c.Body})
	}

	return VerseView{
		VerseNumber:        v.VerseNumber,
		OriginalText:       v.OriginalText,
		EnglishTranslation: v.EnglishTranslation,
		Script:             scripture.DetectScript(v.OriginalText),
		Commentaries:       comms,
	}
}

func documentView(d *scripture.Document) DocumentView {
	view := DocumentView{DocumentSummary: summarize(d), Sections: make([]SectionView, 0, len(d.Content.Sections))}
	for _, sec := range d.Content.Sections {
		sv := SectionView{Number: sec.Number, Title: sec.Title, Verses: make([]VerseView, 0, len(sec.Verses))}
		for i := range sec.Verses {
			sv.Verses = append(sv.Verses, verseView(&sec.Verses[i], nil))
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

func verseDetail(d *scripture.Document, sec *scripture.Section, v *scripture.Verse, selected []string) VerseDetail {
	detail := VerseDetail{
		Scripture:    summarize(d),
		Chapter:      sec.Number,
		SectionTitle: sec.Title,
		VerseView:    verseView(v, selected),
		Commentators: v.Commentators(),
		Selected:     selected,
		Total:        len(sec.Verses),
	}
	if detail.Commentators == nil {
		detail.Commentators = []string{}
	}
	if detail.Selected == nil {
		detail.Selected = []string{}
	}
	for i := range sec.Verses {
		if &sec.Verses[i] != v {
			continue
		}
		detail.Position = i + 1
		if i > 0 {
			detail.Prev = sec.Verses[i-1].VerseNumber.String()
		}
		if i+1 < len(sec.Verses) {
			detail.Next = sec.Verses[i+1].VerseNumber.String()
		}
		break
	}
	return detail
}
