package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/scripture"
	"github.com/FocuswithJustin/Granthalaya/internal/archive"
)

const gitaDoc = `{
  "metadata": {"scripture_name": "Bhagavad Gita", "slug": "gita", "category": "Sri Vaishnava Texts"},
  "content": {"sections": [
    {"number": 2, "title": "Sankhya Yoga", "verses": [
      {"verse_number": 47, "original_text": "karmany evadhikaras te",
       "english_translation": "Let right deeds be thy motive, not the fruit which comes from them.",
       "commentaries": [{"author": "Ramanuja", "commentary": "The motive is worship."}]}
    ]}
  ]}
}`

const stotraDoc = `{
  "metadata": {"scripture_name": "Stotra Ratna", "category": "Sri Vaishnava Texts"},
  "content": {"sections": [
    {"number": 1, "verses": [
      {"verse_number": 1, "original_text": "namo achintya"},
      {"verse_number": 2, "original_text": "svadhyaya"}
    ]}
  ]}
}`

const pavaiXML = `<scripture slug="tiruppavai" name="Tiruppavai" category="Divya Prabandham">
  <section number="1"><verse number="1"><original>margazhi</original></verse></section>
</scripture>`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func standardCorpus(t *testing.T) string {
	return writeFiles(t, map[string]string{
		"b-gita.json":         gitaDoc,
		"a-stotra-ratna.json": stotraDoc,
		"c-broken.json":       `{"metadata": {`,
		"d-pavai.xml":         pavaiXML,
		"notes.txt":           "ignored",
	})
}

func ids(docs []*scripture.Document) []string {
	var out []string
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func TestDirProviderSkipsInvalidJSON(t *testing.T) {
	dir := standardCorpus(t)
	p := &DirProvider{Dir: dir}

	listing, err := p.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}

	// Sorted by file name; stem fallback for the slug-less document.
	if diff := cmp.Diff([]string{"a-stotra-ratna", "gita"}, ids(listing.Documents)); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if len(listing.Diagnostics) != 1 {
		t.Fatalf("diagnostics = %v, want 1", listing.Diagnostics)
	}
	d := listing.Diagnostics[0]
	if d.Source != "c-broken.json" || d.Severity != SeverityError {
		t.Errorf("diagnostic = %+v", d)
	}
	var pe *errors.ParseError
	if !errors.As(d.Err, &pe) {
		t.Errorf("diagnostic error %T is not a ParseError", d.Err)
	}
}

func TestDirProviderIncludeXML(t *testing.T) {
	dir := standardCorpus(t)
	listing, err := (&DirProvider{Dir: dir, IncludeXML: true}).ListDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a-stotra-ratna", "gita", "tiruppavai"}, ids(listing.Documents)); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
}

func TestDirProviderDeterministic(t *testing.T) {
	dir := standardCorpus(t)
	p := &DirProvider{Dir: dir, Workers: 4}

	a, err := p.ListDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.ListDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if a.Fingerprint != b.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
	if diff := cmp.Diff(ids(a.Documents), ids(b.Documents)); diff != "" {
		t.Errorf("order differs:\n%s", diff)
	}

	os.WriteFile(filepath.Join(dir, "b-gita.json"), []byte(strings.Replace(gitaDoc, "Sankhya", "Samkhya", 1)), 0644)
	c, _ := p.ListDocuments(context.Background())
	if c.Fingerprint == a.Fingerprint {
		t.Error("fingerprint should change when a document changes")
	}
}

func TestDirProviderEmptyAndMissing(t *testing.T) {
	listing, err := (&DirProvider{Dir: t.TempDir()}).ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("empty directory: %v", err)
	}
	if len(listing.Documents) != 0 || listing.Fingerprint == "" {
		t.Errorf("empty listing = %+v", listing)
	}

	_, err = (&DirProvider{Dir: filepath.Join(t.TempDir(), "missing")}).ListDocuments(context.Background())
	if !errors.IsUnavailable(err) {
		t.Errorf("missing directory error = %v, want unavailable", err)
	}
}

func TestDirProviderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&DirProvider{Dir: standardCorpus(t)}).ListDocuments(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestArchiveProvider(t *testing.T) {
	dir := standardCorpus(t)
	bundle := filepath.Join(t.TempDir(), "library.tar.xz")
	if _, err := archive.CreateBundle(dir, bundle); err != nil {
		t.Fatalf("CreateBundle failed: %v", err)
	}

	listing, err := (&ArchiveProvider{Path: bundle, IncludeXML: true}).ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a-stotra-ratna", "gita", "tiruppavai"}, ids(listing.Documents)); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	if len(listing.Diagnostics) != 1 {
		t.Errorf("diagnostics = %v, want 1", listing.Diagnostics)
	}

	dirListing, _ := (&DirProvider{Dir: dir, IncludeXML: true}).ListDocuments(context.Background())
	if dirListing.Fingerprint != listing.Fingerprint {
		t.Error("bundle and directory fingerprints should match")
	}

	_, err = (&ArchiveProvider{Path: filepath.Join(t.TempDir(), "none.tar.xz")}).ListDocuments(context.Background())
	if !errors.IsUnavailable(err) {
		t.Errorf("missing bundle error = %v, want unavailable", err)
	}
}

func TestSQLiteImportAndProvider(t *testing.T) {
	ctx := context.Background()
	dir := standardCorpus(t)
	db := filepath.Join(t.TempDir(), "corpus.db")

	res, err := ImportSQLite(ctx, dir, db)
	if err != nil {
		t.Fatalf("ImportSQLite failed: %v", err)
	}
	if res.Imported != 2 || len(res.Diagnostics) != 1 {
		t.Errorf("import result = %+v, want 2 imported and 1 diagnostic", res)
	}

	listing, err := (&SQLiteProvider{Path: db}).ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a-stotra-ratna", "gita"}, ids(listing.Documents)); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}

	_, err = (&SQLiteProvider{Path: filepath.Join(t.TempDir(), "none.db")}).ListDocuments(ctx)
	if !errors.IsUnavailable(err) {
		t.Errorf("missing database error = %v, want unavailable", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
	}{
		{KindDir, "dir"},
		{"", "dir"},
		{KindArchive, "archive"},
		{KindSQLite, "sqlite"},
	}
	for _, tt := range tests {
		p, err := Open(tt.kind, "x", Options{})
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", tt.kind, err)
		}
		if p.Name() != tt.name {
			t.Errorf("Open(%q).Name() = %q, want %q", tt.kind, p.Name(), tt.name)
		}
	}
	if _, err := Open("ftp", "x", Options{}); !errors.Is(err, errors.ErrUnsupported) {
		t.Errorf("Open(ftp) error = %v, want unsupported", err)
	}
}

func doc(slug string, sections ...scripture.Section) *scripture.Document {
	return &scripture.Document{
		Metadata: scripture.Metadata{Slug: slug, ScriptureName: strings.ToUpper(slug), Category: "Stotras"},
		Content:  scripture.Content{Sections: sections},
		Source:   slug + ".json",
	}
}

func section(n int, verses ...int) scripture.Section {
	s := scripture.Section{Number: scripture.NewOrdinal(n)}
	for _, v := range verses {
		s.Verses = append(s.Verses, scripture.Verse{VerseNumber: scripture.NewOrdinal(v), OriginalText: "text"})
	}
	return s
}

func TestLoad(t *testing.T) {
	// a-copy.json overlaps a.json at a-1-1; a-more.json shares the slug
	// without overlapping verses.
	copied := doc("a", section(1, 1))
	copied.Source = "a-copy.json"
	more := doc("a", section(2, 1))
	more.Source = "a-more.json"
	p := &StaticProvider{Documents: []*scripture.Document{
		doc("a", section(1, 1, 2)),
		doc("b", section(1, 1, 1)),
		copied,
		more,
	}}

	snap, err := Load(context.Background(), p, LoadOptions{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.Generation == "" || snap.Fingerprint == "" || snap.Provider != "static" {
		t.Errorf("snapshot identity = %q %q %q", snap.Generation, snap.Fingerprint, snap.Provider)
	}
	if diff := cmp.Diff([]string{"a", "b", "a", "a"}, ids(snap.Documents)); diff != "" {
		t.Errorf("documents mismatch (-want +got):\n%s", diff)
	}
	// One record per parsed verse: 2 + 2 + 1 + 1.
	if len(snap.Verses) != 6 {
		t.Errorf("verses = %d, want 6", len(snap.Verses))
	}
	var verseIDs []string
	for _, v := range snap.Verses {
		verseIDs = append(verseIDs, v.ID)
	}
	wantIDs := []string{"a-1-1", "a-1-2", "b-1-1", "b-1-1", "a-1-1", "a-2-1"}
	if diff := cmp.Diff(wantIDs, verseIDs); diff != "" {
		t.Errorf("verse ids mismatch (-want +got):\n%s", diff)
	}

	type diag struct {
		Source, Message string
		Severity        Severity
	}
	var diags []diag
	for _, d := range snap.Diagnostics {
		diags = append(diags, diag{d.Source, d.Message, d.Severity})
	}
	wantDiags := []diag{
		{"b.json", `verse id "b-1-1" collides with sections[0].verses[0]`, SeverityWarning},
		{"a-copy.json", `slug "a" already used by a.json`, SeverityWarning},
		{"a-copy.json", `verse id "a-1-1" also used by a.json`, SeverityWarning},
		{"a-more.json", `slug "a" already used by a.json`, SeverityWarning},
	}
	if diff := cmp.Diff(wantDiags, diags); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if snap.Errors() != 0 || snap.Skipped() != 0 {
		t.Errorf("errors = %d, skipped = %d, want 0", snap.Errors(), snap.Skipped())
	}
	if d, ok := snap.Document("a"); !ok || d.Source != "a.json" {
		t.Errorf("Document(a) = %v, want the first a.json", d)
	}
	if _, ok := snap.Document("b"); !ok {
		t.Error("Document(b) not found")
	}

	strict, err := Load(context.Background(), p, LoadOptions{Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a"}, ids(strict.Documents)); diff != "" {
		t.Errorf("strict documents mismatch (-want +got):\n%s", diff)
	}
	if len(strict.Verses) != 2 || strict.Errors() != 4 || strict.Skipped() != 3 {
		t.Errorf("strict verses = %d, errors = %d, skipped = %d; want 2, 4, 3",
			len(strict.Verses), strict.Errors(), strict.Skipped())
	}

	other, _ := Load(context.Background(), p, LoadOptions{})
	if other.Generation == snap.Generation {
		t.Error("each load should get a new generation")
	}
	if other.Fingerprint != snap.Fingerprint {
		t.Error("unchanged corpus should keep its fingerprint")
	}
}

func TestLoadPropagatesStoreError(t *testing.T) {
	p := &StaticProvider{Err: errors.NewIO("read corpus directory", "/nope", os.ErrNotExist)}
	if _, err := Load(context.Background(), p, LoadOptions{}); !errors.IsUnavailable(err) {
		t.Errorf("Load error = %v, want unavailable", err)
	}
}

type countingProvider struct {
	StaticProvider
	calls atomic.Int32
}

func (c *countingProvider) ListDocuments(ctx context.Context) (*Listing, error) {
	c.calls.Add(1)
	return c.StaticProvider.ListDocuments(ctx)
}

func TestCatalogZeroTTLLoadsEveryTime(t *testing.T) {
	p := &countingProvider{StaticProvider: StaticProvider{Documents: []*scripture.Document{doc("a", section(1, 1))}}}
	c := NewCatalog(p, 0, LoadOptions{})

	for i := 0; i < 3; i++ {
		if _, err := c.Snapshot(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := p.calls.Load(); got != 3 {
		t.Errorf("provider calls = %d, want 3", got)
	}
}

func TestCatalogTTLAndInvalidate(t *testing.T) {
	p := &countingProvider{StaticProvider: StaticProvider{Documents: []*scripture.Document{doc("a", section(1, 1))}}}
	c := NewCatalog(p, time.Hour, LoadOptions{})

	first, _ := c.Snapshot(context.Background())
	second, _ := c.Snapshot(context.Background())
	if first != second {
		t.Error("cached snapshot should be reused")
	}
	if got := p.calls.Load(); got != 1 {
		t.Errorf("provider calls = %d, want 1", got)
	}

	c.Invalidate()
	third, _ := c.Snapshot(context.Background())
	if third == first {
		t.Error("Invalidate should force a reload")
	}
	if c.Current() != third {
		t.Error("Current should return the latest snapshot")
	}
}

func TestCatalogSubscribe(t *testing.T) {
	p := &StaticProvider{Documents: []*scripture.Document{doc("a", section(1, 1))}}
	c := NewCatalog(p, 0, LoadOptions{})

	var events []LoadEvent
	unsubscribe := c.Subscribe(func(ev LoadEvent) { events = append(events, ev) })

	c.Snapshot(context.Background())
	c.Snapshot(context.Background())
	p.Documents = append(p.Documents, doc("b", section(1, 1)))
	c.Snapshot(context.Background())
	p.Err = errors.NewIO("read", "x", os.ErrPermission)
	c.Snapshot(context.Background())

	unsubscribe()
	c.Snapshot(context.Background())

	var changed []bool
	for _, ev := range events {
		changed = append(changed, ev.Changed)
	}
	if diff := cmp.Diff([]bool{true, false, true, false}, changed); diff != "" {
		t.Errorf("Changed flags mismatch (-want +got):\n%s", diff)
	}
	if events[3].Err == nil || events[3].Snapshot != nil {
		t.Errorf("failed load event = %+v", events[3])
	}
}

func TestNavigation(t *testing.T) {
	gita := doc("gita", section(2, 47, 48))
	gita.Metadata.ScriptureName = "Bhagavad Gita"
	gita.Metadata.Category = "Sri Vaishnava  Texts"
	stotra := doc("stotra-ratna", section(1, 1))
	stotra.Metadata.ScriptureName = "Stotra Ratna"
	stotra.Metadata.Category = "Sri Vaishnava Texts"
	pavai := doc("tiruppavai", section(1, 1))
	pavai.Metadata.Category = "Divya Prabandham"

	snap, err := Load(context.Background(), &StaticProvider{Documents: []*scripture.Document{gita, stotra, pavai}}, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}

	cats := Categories(snap)
	want := []Category{
		{Slug: "divya-prabandham", Name: "Divya Prabandham", Documents: 1},
		{Slug: "sri-vaishnava-texts", Name: "Sri Vaishnava  Texts", Documents: 2},
	}
	if diff := cmp.Diff(want, cats); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}

	docs, err := ByCategory(snap, "sri-vaishnava-texts")
	if err != nil || len(docs) != 2 {
		t.Errorf("ByCategory = %v, %v", ids(docs), err)
	}
	if _, err := ByCategory(snap, "puranas"); !errors.IsNotFound(err) {
		t.Errorf("ByCategory(puranas) error = %v, want not found", err)
	}

	got, err := FindScripture(snap, "sri-vaishnava-texts", "bhagavad-gita")
	if err != nil || got.ID() != "gita" {
		t.Errorf("FindScripture by name = %v, %v", got, err)
	}
	got, err = FindScripture(snap, "sri-vaishnava-texts", "stotra-ratna")
	if err != nil || got.ID() != "stotra-ratna" {
		t.Errorf("FindScripture by slug = %v, %v", got, err)
	}
	if _, err := FindScripture(snap, "divya-prabandham", "bhagavad-gita"); !errors.IsNotFound(err) {
		t.Errorf("FindScripture in wrong category error = %v", err)
	}

	_, _, v, err := FindVerse(snap, "gita", "2", "48")
	if err != nil {
		t.Fatalf("FindVerse failed: %v", err)
	}
	if n, _ := v.VerseNumber.Int(); n != 48 {
		t.Errorf("verse = %d, want 48", n)
	}
	for _, args := range [][3]string{{"nope", "1", "1"}, {"gita", "3", "1"}, {"gita", "2", "99"}} {
		if _, _, _, err := FindVerse(snap, args[0], args[1], args[2]); !errors.IsNotFound(err) {
			t.Errorf("FindVerse%v error = %v, want not found", args, err)
		}
	}
}

func TestDecodeEntries(t *testing.T) {
	defer goleak.VerifyNone(t)

	var inFlight, peak atomic.Int32
	entries := make([]entry, 12)
	for i := range entries {
		name := fmt.Sprintf("doc-%02d.json", i)
		body := fmt.Sprintf(`{"metadata": {"slug": "doc-%02d"}, "content": {"sections": []}}`, i)
		entries[i] = entry{name: name, read: func() ([]byte, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			if name == "doc-05.json" {
				return nil, os.ErrPermission
			}
			return []byte(body), nil
		}}
	}

	got, err := decodeEntries(context.Background(), entries, 3)
	if err != nil {
		t.Fatalf("decodeEntries: %v", err)
	}
	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
	for i, r := range got {
		if i == 5 {
			if !errors.Is(r.err, os.ErrPermission) {
				t.Errorf("entry 5 error = %v, want permission", r.err)
			}
			continue
		}
		if r.err != nil || r.doc.ID() != fmt.Sprintf("doc-%02d", i) {
			t.Errorf("entry %d = %v %v, want doc-%02d", i, r.doc, r.err, i)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := decodeEntries(ctx, entries, 3); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled decodeEntries error = %v", err)
	}
}
