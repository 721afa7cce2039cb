// Package api provides the Granthalaya REST API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/Granthalaya/core/corpus"
	"github.com/FocuswithJustin/Granthalaya/core/search"
	"github.com/FocuswithJustin/Granthalaya/internal/cache"
	"github.com/FocuswithJustin/Granthalaya/internal/logging"
	"github.com/FocuswithJustin/Granthalaya/internal/metrics"
	"github.com/FocuswithJustin/Granthalaya/internal/prefs"
	"github.com/FocuswithJustin/Granthalaya/internal/server"
)

// Version is reported by / and /health. It is overridden at link time.
var Version = "dev"

// indexCacheSize keeps the current full-text index and the one it replaced.
const indexCacheSize = 2

// Server serves the corpus held by a catalog over HTTP.
type Server struct {
	cfg     Config
	catalog *corpus.Catalog
	prefs   prefs.Store
	metrics *metrics.Metrics
	hub     *Hub
	limiter *RateLimiter
	indexes *cache.TTLCache[string, *search.Index]

	started     time.Time
	unsubscribe func()
}

// New validates cfg and returns a server over catalog. A nil store keeps
// preferences in memory; a nil m creates a fresh registry.
func New(cfg Config, catalog *corpus.Catalog, store prefs.Store, m *metrics.Metrics) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return nil, fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return nil, fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return nil, fmt.Errorf("TLS key file not found: %w", err)
		}
	}
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		cfg:     cfg,
		catalog: catalog,
		prefs:   store,
		metrics: m,
		hub:     NewHub(cfg.AllowedOrigins),
		started: time.Now(),
		indexes: cache.New(0,
			cache.WithCapacity[string, *search.Index](indexCacheSize),
			cache.WithEvict(func(_ string, idx *search.Index) {
				if err := idx.Close(); err != nil {
					logging.Warn("search_index_close_failed", "error", err.Error())
				}
			}),
		),
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit)
	}
	s.unsubscribe = catalog.Subscribe(s.observeLoad)
	return s, nil
}

// observeLoad fans catalog loads out to logs, metrics and websocket
// clients.
func (s *Server) observeLoad(ev corpus.LoadEvent) {
	s.metrics.ObserveLoad(ev)

	switch {
	case ev.Err != nil:
		logging.CorpusLoadFailed(ev.Provider, ev.Err)
	case ev.Changed:
		logging.CorpusLoaded(ev.Provider, len(ev.Snapshot.Documents), len(ev.Snapshot.Verses), ev.Duration,
			"generation", ev.Snapshot.Generation,
			"fingerprint", ev.Snapshot.Fingerprint)
		for _, d := range ev.Snapshot.Diagnostics {
			logging.CorpusDiagnostic(d.Source, errors.New(d.Message),
				"severity", string(d.Severity),
				"path", d.Path)
		}
	default:
		// Unchanged corpus: repeat diagnostics quietly on every load.
		for _, d := range ev.Snapshot.Diagnostics {
			logging.Debug("corpus_diagnostic",
				"source", d.Source,
				"error", d.Message,
				"severity", string(d.Severity),
				"path", d.Path,
				"generation", ev.Snapshot.Generation)
		}
	}

	if out, ok := EventFromLoad(ev); ok {
		s.hub.Broadcast(out)
	}
}

// index returns the full-text index for snap, building it on first use.
// The index is acquired; callers must Release it.
func (s *Server) index(snap *corpus.Snapshot) (*search.Index, error) {
	key := snap.Fingerprint
	if key == "" {
		key = snap.Generation
	}
	for {
		idx, err := s.indexes.GetOrCompute(key, func() (*search.Index, error) {
			start := time.Now()
			idx, err := search.BuildIndex(snap.Verses, snap.Fingerprint)
			if err != nil {
				return nil, err
			}
			logging.Info("search_index_built", "verses", idx.Len(), "duration_ms", time.Since(start).Milliseconds())
			return idx, nil
		})
		if err != nil {
			return nil, err
		}
		if idx.Acquire() {
			return idx, nil
		}
		// Evicted between lookup and use; the cache no longer holds it.
	}
}

func releaseIndex(idx *search.Index) {
	if err := idx.Release(); err != nil {
		logging.Warn("search_index_close_failed", "error", err.Error())
	}
}

func (s *Server) maxResults() int {
	if s.cfg.MaxResults > 0 {
		return s.cfg.MaxResults
	}
	return DefaultMaxResults
}

// Handler returns the full middleware chain around the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/scriptures", s.handleListing)
	mux.HandleFunc("GET /api/scriptures/{slug}/{chapter}/{verse}", s.handleVerse)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/categories/{category}", s.handleCategory)
	mux.HandleFunc("GET /api/categories/{category}/{scripture}", s.handleScripture)
	mux.HandleFunc("GET /api/verse", s.handleReference)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handlePutPreferences)
	mux.Handle("POST /api/admin/reload", AuthMiddleware(s.cfg.Auth, http.HandlerFunc(s.handleReload)))
	mux.Handle("GET /ws", s.hub)
	mux.Handle("GET /metrics", s.metrics.Handler())

	var handler http.Handler = s.metrics.Middleware(mux)
	handler = server.TimingMiddleware(handler)
	handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

// Run listens on the configured port and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx ends, then shuts down
// gracefully. The websocket hub and rate limiter cleanup run alongside.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logStartup()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	if s.limiter != nil {
		g.Go(func() error {
			s.limiter.RunCleanup(gctx)
			return nil
		})
	}
	g.Go(func() error {
		var err error
		if s.cfg.TLS.Enabled {
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		grace := s.cfg.ShutdownGrace
		if grace <= 0 {
			grace = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		logging.Info("server_shutdown", "grace", grace.String())
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.Close()
	return err
}

// Close detaches the server from the catalog and releases cached indexes.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.indexes.Invalidate()
}

func (s *Server) logStartup() {
	protocol, wsProtocol := "http", "ws"
	if s.cfg.TLS.Enabled {
		protocol, wsProtocol = "https", "wss"
		logging.Info("TLS enabled", "cert_file", server.AbsPath(s.cfg.TLS.CertFile))
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.ServerStartup("rest_api", protocol, s.cfg.Port,
		"websocket_protocol", wsProtocol,
		"provider", s.catalog.Provider().Name())

	if s.cfg.Auth.Enabled() {
		logging.SecurityEvent("authentication_configured", "api", "enabled", true, "keys", len(s.cfg.Auth.APIKeys))
	} else {
		logging.SecurityEvent("authentication_configured", "api", "enabled", false, "note", "admin endpoints disabled")
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api", "mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api", "mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}
	if s.limiter != nil {
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimit.RequestsPerMinute,
			"burst_size", s.limiter.config.BurstSize)
	}
}
