package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/Granthalaya/core/errors"
)

type testCLI struct {
	Config kong.ConfigFlag `help:"Configuration file"`
	Corpus `embed:""`
	Serve  `embed:""`
}

func parse(t *testing.T, files []string, args ...string) *testCLI {
	t.Helper()
	var cli testCLI
	parser, err := kong.New(&cli,
		kong.Name("granthalaya"),
		kong.Configuration(JSONC, files...),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}
	if _, err := parser.Parse(args); err != nil {
		t.Fatalf("Parse(%v): %v", args, err)
	}
	return &cli
}

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cli := parse(t, nil)
	if cli.Source != "dir" || cli.Port != 8080 || cli.CacheTTL != 0 || !cli.IncludeXML {
		t.Errorf("unexpected defaults: %+v %+v", cli.Corpus, cli.Serve)
	}
}

// TestJSONCPrecedence verifies later files override earlier ones and flags override both.
func TestJSONCPrecedence(t *testing.T) {
	dir := t.TempDir()
	global := write(t, dir, "global.jsonc", `{
		// user-wide defaults
		"port": 9000,
		"source": "archive",
		"cache_ttl": "1m",
	}`)
	project := write(t, dir, "project.jsonc", `{
		"port": 9100, /* project wins over global */
		"listing_max_age": "5m",
	}`)

	cli := parse(t, []string{global, project})
	if cli.Port != 9100 {
		t.Errorf("port = %d, want 9100", cli.Port)
	}
	if cli.Source != "archive" {
		t.Errorf("source = %q, want archive", cli.Source)
	}
	if cli.CacheTTL != time.Minute {
		t.Errorf("cache ttl = %v", cli.CacheTTL)
	}
	if cli.ListingMaxAge != 5*time.Minute {
		t.Errorf("listing max age = %v", cli.ListingMaxAge)
	}

	cli = parse(t, []string{global, project}, "--port", "7000")
	if cli.Port != 7000 {
		t.Errorf("flag port = %d, want 7000", cli.Port)
	}
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	explicit := write(t, dir, "explicit.jsonc", `{"rate_limit": 60}`)
	cli := parse(t, nil, "--config", explicit)
	if cli.RateLimit != 60 {
		t.Errorf("rate limit = %d, want 60", cli.RateLimit)
	}
}

func TestMissingFilesIgnored(t *testing.T) {
	cli := parse(t, []string{filepath.Join(t.TempDir(), "none.jsonc")})
	if cli.Port != 8080 {
		t.Errorf("port = %d", cli.Port)
	}
}

func TestJSONCRejectsGarbage(t *testing.T) {
	_, err := JSONC(strings.NewReader(`{"port": `))
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestGlobalFileHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := GlobalFile(); got != filepath.Join("/tmp/xdg", "granthalaya", "config.jsonc") {
		t.Errorf("GlobalFile() = %q", got)
	}
	paths := Paths()
	if paths[len(paths)-1] != ProjectFile {
		t.Errorf("project file must have highest precedence: %v", paths)
	}
}

func TestServeCheck(t *testing.T) {
	tests := []struct {
		name    string
		s       Serve
		wantErr bool
	}{
		{"plain", Serve{Port: 8080}, false},
		{"tls pair", Serve{Port: 443, TLSCert: "c.pem", TLSKey: "k.pem"}, false},
		{"cert only", Serve{Port: 443, TLSCert: "c.pem"}, true},
		{"bad port", Serve{Port: 70000}, true},
	}
	for _, tt := range tests {
		if err := tt.s.Check(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Check() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestCorpusCheckAndProvider(t *testing.T) {
	dir := t.TempDir()
	c := Corpus{Source: "dir", Corpus: dir, IncludeXML: true}
	if err := c.Check(); err != nil {
		t.Errorf("Check: %v", err)
	}
	p, err := c.Provider()
	if err != nil {
		t.Fatalf("Provider: %v", err)
	}
	if p.Name() == "" {
		t.Error("provider has no name")
	}

	c.Source = "sqlite"
	if err := c.Check(); !errors.IsInvalidInput(err) {
		t.Errorf("directory as sqlite: %v", err)
	}
	if c.LoadOptions().Strict {
		t.Error("strict should default to false")
	}
}

func TestLoggingApply(t *testing.T) {
	if err := (Logging{LogLevel: "debug", LogFormat: "text"}).Apply(); err != nil {
		t.Fatal(err)
	}
	if err := (Logging{LogLevel: "info", LogFormat: "json"}).Apply(); err != nil {
		t.Fatal(err)
	}
}
