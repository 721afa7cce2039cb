// Package xml reads and writes scripture documents in XML form:
//
//	<scripture slug="gita" name="Bhagavad Gita" category="..." author="...">
//	  <section number="2" title="Sankhya Yoga">
//	    <verse number="47">
//	      <original>...</original>
//	      <translation>...</translation>
//	      <commentary author="Ramanuja">...</commentary>
//	      <commentary>unattributed note</commentary>
//	    </verse>
//	  </section>
//	</scripture>
//
// Security Notes:
//   - Entity expansion is disabled in CheckWellFormed, and xmlquery parses
//     through encoding/xml, which never fetches external entities.
package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
)

// Selectors are compiled once; xpath.Expr is safe for concurrent use.
var (
	rootExpr       = xpath.MustCompile("/scripture")
	sectionExpr    = xpath.MustCompile("section")
	verseExpr      = xpath.MustCompile("verse")
	originalExpr   = xpath.MustCompile("original")
	translationExp = xpath.MustCompile("translation")
	commentaryExpr = xpath.MustCompile("commentary")
)

// CheckWellFormed tokenizes data with entity expansion disabled and returns
// the first syntax error.
func CheckWellFormed(data []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Decode parses one <scripture> document. Malformed XML or a missing root
// element is a *errors.ParseError. Unnumbered sections and verses are kept
// and reported as issues.
func Decode(data []byte, source string) (*scripture.Document, []scripture.Issue, error) {
	if err := CheckWellFormed(data); err != nil {
		return nil, nil, errors.WrapParse("XML", source, err)
	}

	top, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.WrapParse("XML", source, err)
	}

	root := xmlquery.QuerySelector(top, rootExpr)
	if root == nil {
		return nil, nil, errors.NewParse("XML", source, "missing <scripture> root element")
	}

	doc := &scripture.Document{
		Source: source,
		Metadata: scripture.Metadata{
			ScriptureName:     root.SelectAttr("name"),
			Slug:              root.SelectAttr("slug"),
			Author:            root.SelectAttr("author"),
			Category:          root.SelectAttr("category"),
			YearOfComposition: root.SelectAttr("year"),
		},
	}

	var issues []scripture.Issue
	for i, sec := range xmlquery.QuerySelectorAll(root, sectionExpr) {
		section := scripture.Section{
			Number: ordinal(sec.SelectAttr("number")),
			Title:  sec.SelectAttr("title"),
		}
		if section.Number.IsZero() {
			issues = append(issues, scripture.Issue{
				Path:    fmt.Sprintf("sections[%d]", i),
				Message: "section has no number attribute",
			})
		}
		for j, v := range xmlquery.QuerySelectorAll(sec, verseExpr) {
			verse := decodeVerse(v)
			if verse.VerseNumber.IsZero() {
				issues = append(issues, scripture.Issue{
					Path:    fmt.Sprintf("sections[%d].verses[%d]", i, j),
					Message: "verse has no number attribute",
				})
			}
			section.Verses = append(section.Verses, verse)
		}
		doc.Content.Sections = append(doc.Content.Sections, section)
	}

	doc.Metadata.TotalChapters = len(doc.Content.Sections)
	doc.Metadata.TotalVerses = doc.VerseCount()
	return doc, issues, nil
}

func decodeVerse(n *xmlquery.Node) scripture.Verse {
	v := scripture.Verse{
		VerseNumber:        ordinal(n.SelectAttr("number")),
		OriginalText:       childText(n, originalExpr),
		EnglishTranslation: childText(n, translationExp),
	}
	for _, c := range xmlquery.QuerySelectorAll(n, commentaryExpr) {
		body := strings.TrimSpace(c.InnerText())
		if author := c.SelectAttr("author"); author != "" {
			v.Commentaries = append(v.Commentaries, scripture.NewAuthored(author, body))
		} else {
			v.Commentaries = append(v.Commentaries, scripture.NewPlainText(body))
		}
	}
	return v
}

func childText(n *xmlquery.Node, expr *xpath.Expr) string {
	if c := xmlquery.QuerySelector(n, expr); c != nil {
		return strings.TrimSpace(c.InnerText())
	}
	return ""
}

// ordinal keeps XML attribute numbers numeric, as JSON numbers would be.
func ordinal(s string) scripture.Ordinal {
	if n, err := strconv.Atoi(s); err == nil {
		return scripture.NewOrdinal(n)
	}
	return scripture.ParseOrdinal(s)
}

// Encode writes doc in the form Decode reads.
func Encode(w io.Writer, doc *scripture.Document) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	buf.WriteString("<scripture")
	writeAttr(&buf, "slug", doc.Metadata.Slug)
	writeAttr(&buf, "name", doc.Metadata.ScriptureName)
	writeAttr(&buf, "category", doc.Metadata.Category)
	writeAttr(&buf, "author", doc.Metadata.Author)
	writeAttr(&buf, "year", doc.Metadata.YearOfComposition)
	buf.WriteString(">\n")

	for _, sec := range doc.Content.Sections {
		buf.WriteString("  <section")
		writeAttr(&buf, "number", sec.Number.String())
		writeAttr(&buf, "title", sec.Title)
		buf.WriteString(">\n")

		for _, v := range sec.Verses {
			buf.WriteString("    <verse")
			writeAttr(&buf, "number", v.VerseNumber.String())
			buf.WriteString(">\n")
			writeElement(&buf, "original", "", v.OriginalText)
			writeElement(&buf, "translation", "", v.EnglishTranslation)
			for _, c := range v.Commentaries {
				if c.IsEmpty() && c.Author == "" {
					continue
				}
				writeElement(&buf, "commentary", c.Author, c.Body)
			}
			buf.WriteString("    </verse>\n")
		}
		buf.WriteString("  </section>\n")
	}
	buf.WriteString("</scripture>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func writeAttr(buf *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	buf.WriteString(" ")
	buf.WriteString(name)
	buf.WriteString(`="`)
	xml.EscapeText(buf, []byte(value))
	buf.WriteString(`"`)
}

func writeElement(buf *bytes.Buffer, name, author, text string) {
	if text == "" && author == "" {
		return
	}
	buf.WriteString("      <")
	buf.WriteString(name)
	writeAttr(buf, "author", author)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(text))
	buf.WriteString("</")
	buf.WriteString(name)
	buf.WriteString(">\n")
}
