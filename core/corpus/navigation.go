package corpus

import (
	"sort"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// Category groups documents sharing a slugified category.
type Category struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	Documents int    `json:"documents"`
}

// Categories lists the categories of snap sorted by slug. The display name
// is the first spelling seen in load order.
func Categories(snap *Snapshot) []Category {
	index := make(map[string]int)
	var out []Category
	for _, d := range snap.Documents {
		slug := d.CategorySlug()
		if i, ok := index[slug]; ok {
			out[i].Documents++
			continue
		}
		index[slug] = len(out)
		out = append(out, Category{Slug: slug, Name: d.Metadata.Category, Documents: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// ByCategory returns the documents whose slugified category is slug, in
// load order. An unknown category is a *errors.NotFoundError.
func ByCategory(snap *Snapshot, slug string) ([]*scripture.Document, error) {
	var docs []*scripture.Document
	for _, d := range snap.Documents {
		if d.CategorySlug() == slug {
			docs = append(docs, d)
		}
	}
	if len(docs) == 0 {
		return nil, errors.NewNotFound("category", slug)
	}
	return docs, nil
}

// FindScripture returns the document in category whose id or slugified name
// equals scripture.
func FindScripture(snap *Snapshot, category, scriptureSlug string) (*scripture.Document, error) {
	docs, err := ByCategory(snap, category)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ScriptureSlug() == scriptureSlug || d.ID() == scriptureSlug {
			return d, nil
		}
	}
	return nil, errors.NewNotFound("scripture", category+"/"+scriptureSlug)
}

// FindVerse returns one verse of the document with id slug.
func FindVerse(snap *Snapshot, slug, chapter, verse string) (*scripture.Document, *scripture.Section, *scripture.Verse, error) {
	doc, ok := snap.Document(slug)
	if !ok {
		return nil, nil, nil, errors.NewNotFound("scripture", slug)
	}
	sec, ok := doc.Section(scripture.ParseOrdinal(chapter))
	if !ok {
		return nil, nil, nil, errors.NewNotFound("chapter", slug+" "+chapter)
	}
	v, ok := sec.Verse(scripture.ParseOrdinal(verse))
	if !ok {
		return nil, nil, nil, errors.NewNotFound("verse", slug+" "+chapter+":"+verse)
	}
	return doc, sec, v, nil
}
