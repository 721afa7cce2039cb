package scripture

import "fmt"

// Validate reports structural problems that decoding tolerates but that
// break identity: repeated section numbers and verses whose derived ids
// ("{slug}-{section}-{verse}") collide.
func Validate(doc *Document) []Issue {
	var issues []Issue

	sectionSeen := make(map[string]int)
	idSeen := make(map[string]string)
	slug := doc.ID()

	for i, sec := range doc.Content.Sections {
		at := fmt.Sprintf("sections[%d]", i)

		key := ordinalKey(sec.Number)
		if first, dup := sectionSeen[key]; dup {
			issues = append(issues, Issue{
				Path:    at,
				Message: fmt.Sprintf("section number %q repeats sections[%d]", sec.Number.String(), first),
			})
		} else {
			sectionSeen[key] = i
		}

		for j, v := range sec.Verses {
			vat := fmt.Sprintf("%s.verses[%d]", at, j)
			id := VerseID(slug, sec.Number, v.VerseNumber)
			if first, dup := idSeen[id]; dup {
				issues = append(issues, Issue{
					Path:    vat,
					Message: fmt.Sprintf("verse id %q collides with %s", id, first),
				})
				continue
			}
			idSeen[id] = vat
		}
	}

	return issues
}

// VerseID derives the listing identifier of a verse.
func VerseID(slug string, section, verse Ordinal) string {
	return slug + "-" + section.String() + "-" + verse.String()
}

// ordinalKey normalizes numeric ordinals so "02" and 2 compare equal.
func ordinalKey(o Ordinal) string {
	if n, ok := o.Int(); ok {
		return fmt.Sprintf("#%d", n)
	}
	return "s:" + o.String()
}
