// Package config holds the command-line flag groups shared by granthalaya
// commands and the JSONC configuration loader that supplies their defaults.
//
// Values resolve in this order, later winning: flag defaults, the global
// file ($XDG_CONFIG_HOME/granthalaya/config.jsonc), the project file
// (./granthalaya.jsonc), a file named with --config, then explicit flags.
// Keys are flag names with hyphens replaced by underscores, for example:
//
//	{
//	  // corpus
//	  "source": "dir",
//	  "corpus": "./data/scriptures",
//	  "cache_ttl": "30s",
//	}
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"github.com/tailscale/hujson"

	"github.com/FocuswithJustin/Granthalaya/core/corpus"
	"github.com/FocuswithJustin/Granthalaya/core/errors"
	"github.com/FocuswithJustin/Granthalaya/internal/logging"
	"github.com/FocuswithJustin/Granthalaya/internal/validation"
)

// ProjectFile is looked up in the working directory.
const ProjectFile = "granthalaya.jsonc"

// JSONC is a kong.ConfigurationLoader accepting JSON with comments and
// trailing commas.
func JSONC(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, errors.WrapParse("JSONC", "", err)
	}
	return kong.JSON(bytes.NewReader(standardized))
}

// GlobalFile returns the per-user configuration path.
func GlobalFile() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "granthalaya", "config.jsonc")
}

// Paths lists configuration files in increasing precedence.
func Paths() []string {
	var paths []string
	if g := GlobalFile(); g != "" {
		paths = append(paths, g)
	}
	return append(paths, ProjectFile)
}

// Option wires the JSONC files into a kong parser. Missing files are
// ignored.
func Option() kong.Option {
	return kong.Configuration(JSONC, Paths()...)
}

// Logging configures the global logger.
type Logging struct {
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"json" enum:"json,text"`
}

// Apply initializes the logger from the flags. Logs go to stderr; command
// output owns stdout.
func (l Logging) Apply() error {
	level, err := logging.ParseLevel(l.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(l.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLoggerTo(os.Stderr, level, format)
	return nil
}

// Corpus selects and tunes the content store.
type Corpus struct {
	Source     string `help:"Corpus source (dir, archive, sqlite)" default:"dir" enum:"dir,archive,sqlite"`
	Corpus     string `help:"Corpus directory, bundle or database" default:"./data/scriptures" type:"path"`
	IncludeXML bool   `name:"include-xml" help:"Also load .xml scripture documents" default:"true" negatable:""`
	Strict     bool   `help:"Skip documents whose slug or verse ids collide instead of loading them with warnings"`
	Workers    int    `help:"Documents decoded in parallel (0 = CPU count)" default:"0"`
}

// Check verifies that the corpus location matches the source kind.
func (c Corpus) Check() error {
	return validation.ValidateCorpusPath(c.Corpus, c.Source == string(corpus.KindDir))
}

// Provider opens the configured content store.
func (c Corpus) Provider() (corpus.Provider, error) {
	return corpus.Open(corpus.Kind(c.Source), c.Corpus, corpus.Options{
		IncludeXML: c.IncludeXML,
		Workers:    c.Workers,
	})
}

// LoadOptions returns the snapshot options.
func (c Corpus) LoadOptions() corpus.LoadOptions {
	return corpus.LoadOptions{Strict: c.Strict}
}

// Serve holds HTTP server settings.
type Serve struct {
	Port           int           `help:"HTTP server port" default:"8080"`
	TLSCert        string        `name:"tls-cert" help:"TLS certificate file" type:"path"`
	TLSKey         string        `name:"tls-key" help:"TLS private key file" type:"path"`
	CacheTTL       time.Duration `name:"cache-ttl" help:"Serve a loaded corpus for this long before reading the store again (0 = every request)" default:"0s"`
	ListingMaxAge  time.Duration `name:"listing-max-age" help:"Cache-Control max-age for the listing endpoint (0 = no header)" default:"0s"`
	RateLimit      int           `name:"rate-limit" help:"Requests per minute per client (0 = disabled)" default:"0"`
	RateBurst      int           `name:"rate-burst" help:"Rate limit burst size" default:"10"`
	APIKey         []string      `name:"api-key" help:"API keys accepted by admin endpoints" env:"GRANTHALAYA_API_KEY"`
	AllowedOrigins []string      `name:"allowed-origins" help:"CORS allowed origins (empty = all)"`
	Watch          bool          `help:"Reload when corpus files change"`
	Preferences    string        `help:"Preferences file (empty keeps preferences in memory)" type:"path" xor:"prefs"`
	PrefsRedis     string        `name:"preferences-redis" help:"Redis URL for shared preferences, e.g. redis://localhost:6379/0" env:"GRANTHALAYA_PREFERENCES_REDIS" xor:"prefs"`
	PrefsTTL       time.Duration `name:"preferences-ttl" help:"Expire idle Redis preferences after this long (0 = never)" default:"0s"`
	ShutdownGrace  time.Duration `name:"shutdown-grace" help:"Time allowed for in-flight requests on shutdown" default:"10s"`
}

// Check verifies TLS pairing and the port range.
func (s Serve) Check() error {
	if (s.TLSCert == "") != (s.TLSKey == "") {
		return errors.NewValidation("tls", "both --tls-cert and --tls-key are required")
	}
	if s.Port < 0 || s.Port > 65535 {
		return errors.NewValidation("port", "out of range")
	}
	return nil
}
