// Command granthalaya serves and inspects a scripture corpus.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/Granthalaya/core/corpus"
	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/core/reference"
	"github.com/FocuswithJustin/Granthalaya/core/search"
	"github.com/FocuswithJustin/Granthalaya/core/sqlite"
	"github.com/FocuswithJustin/Granthalaya/core/xml"
	"github.com/FocuswithJustin/Granthalaya/internal/api"
	"github.com/FocuswithJustin/Granthalaya/internal/archive"
	"github.com/FocuswithJustin/Granthalaya/internal/config"
	"github.com/FocuswithJustin/Granthalaya/internal/logging"
	"github.com/FocuswithJustin/Granthalaya/internal/metrics"
	"github.com/FocuswithJustin/Granthalaya/internal/prefs"
	"github.com/FocuswithJustin/Granthalaya/internal/validation"
	"github.com/FocuswithJustin/Granthalaya/internal/watch"
)

const version = "0.1.0"

// CLI defines the command-line interface for granthalaya.
type CLI struct {
	Config         kong.ConfigFlag `help:"Additional JSONC configuration file"`
	config.Logging `embed:""`

	Serve        ServeCmd        `cmd:"" help:"Start the HTTP server"`
	List         ListCmd         `cmd:"" help:"Print every verse as a JSON array"`
	Search       SearchCmd       `cmd:"" help:"Search verses and commentaries"`
	Validate     ValidateCmd     `cmd:"" help:"Load the corpus and report problems"`
	Ref          RefCmd          `cmd:"" help:"Print the passage a reference names"`
	Show         ShowCmd         `cmd:"" help:"Print one scripture as JSON or XML"`
	Bundle       BundleCmd       `cmd:"" help:"Package a corpus directory as a bundle"`
	ImportSQLite ImportSQLiteCmd `cmd:"" name:"import-sqlite" help:"Copy a corpus directory into a SQLite database"`
	Version      VersionCmd      `cmd:"" help:"Print version information"`
}

// options are shared by main and the tests.
func options(ctx context.Context, out io.Writer) []kong.Option {
	return []kong.Option{
		kong.Name("granthalaya"),
		kong.Description("Granthalaya - scripture library server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		config.Option(),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
	}
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	config.Corpus `embed:""`
	config.Serve  `embed:""`
}

func (c *ServeCmd) Run(ctx context.Context) error {
	if err := c.Corpus.Check(); err != nil {
		return err
	}
	if err := c.Serve.Check(); err != nil {
		return err
	}
	provider, err := c.Provider()
	if err != nil {
		return err
	}
	catalog := corpus.NewCatalog(provider, c.CacheTTL, c.LoadOptions())

	var store prefs.Store = prefs.NewMemoryStore()
	switch {
	case c.Preferences != "":
		if err := validation.ValidatePath(c.Preferences); err != nil {
			return err
		}
		store = prefs.NewFileStore(c.Preferences)
	case c.PrefsRedis != "":
		rs, err := prefs.OpenRedis(ctx, c.PrefsRedis, c.PrefsTTL)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	}

	srv, err := api.New(api.Config{
		Port: c.Port,
		TLS: api.TLSConfig{
			Enabled:  c.TLSCert != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
		Auth: api.AuthConfig{APIKeys: c.APIKey},
		RateLimit: api.RateLimiterConfig{
			RequestsPerMinute: c.RateLimit,
			BurstSize:         c.RateBurst,
		},
		AllowedOrigins: c.AllowedOrigins,
		ListingMaxAge:  c.ListingMaxAge,
		ShutdownGrace:  c.ShutdownGrace,
	}, catalog, store, metrics.New())
	if err != nil {
		return err
	}

	// A store that cannot be read yet is not fatal; requests report it
	// until it recovers.
	if _, err := catalog.Snapshot(ctx); err != nil {
		logging.Warn("initial corpus load failed", "error", err.Error())
	}

	if c.Watch {
		w := c.watcher(catalog)
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watch corpus: %w", err)
		}
		defer w.Stop()
	}

	return srv.Run(ctx)
}

// watcher reloads catalog when the corpus changes on disk.
func (c *ServeCmd) watcher(catalog *corpus.Catalog) *watch.Watcher {
	reload := func(ctx context.Context) {
		catalog.Invalidate()
		if _, err := catalog.Reload(ctx); err != nil {
			logging.Warn("corpus reload after change failed", "error", err.Error())
		}
	}

	if corpus.Kind(c.Source) == corpus.KindDir {
		exts := []string{".json"}
		if c.IncludeXML {
			exts = append(exts, ".xml")
		}
		return watch.New(c.Corpus.Corpus, watch.Extensions(exts...), watch.DefaultDebounce, reload)
	}
	return watch.New(filepath.Dir(c.Corpus.Corpus), watch.File(c.Corpus.Corpus), watch.DefaultDebounce, reload)
}

// loadSnapshot reads the configured corpus once.
func loadSnapshot(ctx context.Context, c config.Corpus) (*corpus.Snapshot, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	provider, err := c.Provider()
	if err != nil {
		return nil, err
	}
	return corpus.Load(ctx, provider, c.LoadOptions())
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ListCmd prints the flattened listing.
type ListCmd struct {
	config.Corpus `embed:""`
}

func (c *ListCmd) Run(ctx context.Context, out io.Writer) error {
	snap, err := loadSnapshot(ctx, c.Corpus)
	if err != nil {
		return err
	}
	verses := snap.Verses
	if verses == nil {
		return writeJSON(out, []any{})
	}
	return writeJSON(out, verses)
}

// SearchCmd searches the corpus.
type SearchCmd struct {
	config.Corpus `embed:""`

	Query    string `arg:"" help:"Text to look for"`
	Coarse   bool   `help:"Match flattened verses instead of individual commentaries" xor:"mode"`
	FullText bool   `name:"fulltext" help:"Rank verses by relevance" xor:"mode"`
	Limit    int    `help:"Maximum ranked results" default:"50"`
}

func (c *SearchCmd) Run(ctx context.Context, out io.Writer) error {
	if err := validation.ValidateQuery(c.Query); err != nil {
		return err
	}
	snap, err := loadSnapshot(ctx, c.Corpus)
	if err != nil {
		return err
	}

	switch {
	case c.Coarse:
		res := search.FilterVerses(snap.Verses, c.Query)
		if res == nil {
			return writeJSON(out, []any{})
		}
		return writeJSON(out, res)
	case c.FullText:
		idx, err := search.BuildIndex(snap.Verses, snap.Fingerprint)
		if err != nil {
			return err
		}
		defer idx.Close()
		hits, err := idx.Query(c.Query, c.Limit)
		if err != nil {
			return err
		}
		if hits == nil {
			hits = []search.Hit{}
		}
		return writeJSON(out, hits)
	default:
		res := search.Search(snap.Documents, c.Query)
		if res == nil {
			res = []search.Result{}
		}
		return writeJSON(out, res)
	}
}

// ValidateCmd reports every diagnostic and fails if there are any.
type ValidateCmd struct {
	config.Corpus `embed:""`
}

func (c *ValidateCmd) Run(ctx context.Context, out io.Writer) error {
	snap, err := loadSnapshot(ctx, c.Corpus)
	if err != nil {
		return err
	}

	for _, d := range snap.Diagnostics {
		fmt.Fprintf(out, "%-7s %s\n", d.Severity, d)
	}
	fmt.Fprintf(out, "%d documents, %d verses, %d problems (%d skipped documents)\n",
		len(snap.Documents), len(snap.Verses), len(snap.Diagnostics), snap.Skipped())

	if len(snap.Diagnostics) > 0 {
		return fmt.Errorf("corpus has %d problems", len(snap.Diagnostics))
	}
	return nil
}

// RefCmd resolves a reference such as "bhagavad-gita 2:47".
type RefCmd struct {
	config.Corpus `embed:""`

	Reference []string `arg:"" help:"Reference, for example: bhagavad-gita 2:47-48"`
	JSON      bool     `name:"json" help:"Print JSON instead of text"`
}

func (c *RefCmd) Run(ctx context.Context, out io.Writer) error {
	ref, err := reference.Parse(strings.Join(c.Reference, " "))
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(ctx, c.Corpus)
	if err != nil {
		return err
	}
	m, err := reference.Resolve(snap.Documents, ref)
	if err != nil {
		return err
	}

	if c.JSON {
		return writeJSON(out, map[string]any{
			"reference": ref.String(),
			"scripture": m.Document.Name(),
			"chapter":   m.Section.Number,
			"verses":    m.Verses,
		})
	}

	fmt.Fprintf(out, "%s, %s %s\n", m.Document.Name(), m.Section.Number, m.Section.Title)
	for _, v := range m.Verses {
		fmt.Fprintf(out, "\n%s.\n", v.VerseNumber)
		if v.OriginalText != "" {
			fmt.Fprintln(out, v.OriginalText)
		}
		if v.EnglishTranslation != "" {
			fmt.Fprintln(out, v.EnglishTranslation)
		}
	}
	return nil
}

// ShowCmd prints a whole document.
type ShowCmd struct {
	config.Corpus `embed:""`

	Slug   string `arg:"" help:"Scripture id"`
	Format string `help:"Output format (json, xml)" default:"json" enum:"json,xml"`
}

func (c *ShowCmd) Run(ctx context.Context, out io.Writer) error {
	snap, err := loadSnapshot(ctx, c.Corpus)
	if err != nil {
		return err
	}
	doc, ok := snap.Document(c.Slug)
	if !ok {
		return errors.NewNotFound("scripture", c.Slug)
	}
	if c.Format == "xml" {
		return xml.Encode(out, doc)
	}
	return writeJSON(out, doc)
}

// BundleCmd packages a corpus directory.
type BundleCmd struct {
	Dir string `arg:"" help:"Corpus directory" type:"existingdir"`
	Out string `required:"" help:"Bundle path (.tar.xz or .tar.gz)" type:"path"`
}

func (c *BundleCmd) Run(out io.Writer) error {
	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	manifest, err := archive.CreateBundle(c.Dir, c.Out)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Bundled %d documents into %s\n", len(manifest.Documents), c.Out)
	fmt.Fprintf(out, "Fingerprint: %s\n", manifest.Fingerprint)
	return nil
}

// ImportSQLiteCmd imports a corpus directory into a database.
type ImportSQLiteCmd struct {
	Dir string `arg:"" help:"Corpus directory" type:"existingdir"`
	DB  string `name:"db" required:"" help:"SQLite database path" type:"path"`
}

func (c *ImportSQLiteCmd) Run(ctx context.Context, out io.Writer) error {
	if err := validation.ValidatePath(c.DB); err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}
	res, err := corpus.ImportSQLite(ctx, c.Dir, c.DB)
	if err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		fmt.Fprintf(out, "%-7s %s\n", d.Severity, d)
	}
	fmt.Fprintf(out, "Imported %d documents into %s (%s)\n", res.Imported, c.DB, sqlite.DriverName())
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(out, "granthalaya version %s\n", version)
	fmt.Fprintf(out, "sqlite driver: %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func main() {
	api.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli, options(ctx, os.Stdout)...)
	kctx.FatalIfErrorf(cli.Logging.Apply())
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
