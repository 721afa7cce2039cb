// Package server provides HTTP middleware shared by the API server.
package server

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/Granthalaya/internal/logging"
)

// AbsPath returns the absolute path of a file, or the original path if it fails.
func AbsPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	// AllowedOrigins lists permitted origins; empty allows all (*).
	AllowedOrigins []string
	// AllowedMethods defaults to GET, PUT, POST, OPTIONS.
	AllowedMethods []string
	// MaxAge is sent on preflight responses when positive.
	MaxAge time.Duration
}

// CORSMiddlewareWithConfig adds CORS headers to responses.
// A request from an origin outside AllowedOrigins gets no CORS headers and
// its preflight is refused with 403.
func CORSMiddlewareWithConfig(cfg CORSConfig, next http.Handler) http.Handler {
	methods := "GET, PUT, POST, OPTIONS"
	if len(cfg.AllowedMethods) > 0 {
		methods = strings.Join(cfg.AllowedMethods, ", ")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowedOrigin := "*"
		if len(cfg.AllowedOrigins) > 0 {
			allowedOrigin = ""
			for _, o := range cfg.AllowedOrigins {
				if o == "*" || origin == o {
					allowedOrigin = o
					break
				}
			}
			if allowedOrigin == "" {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}
		}

		h := w.Header()
		h.Set("Access-Control-Allow-Origin", allowedOrigin)
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Client-ID, If-None-Match")
		h.Set("Access-Control-Expose-Headers", "ETag, X-Request-ID, X-Client-ID")
		if allowedOrigin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge.Seconds())))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SlowRequestThreshold is the duration above which TimingMiddleware warns.
const SlowRequestThreshold = 250 * time.Millisecond

// TimingMiddleware sets a Server-Timing header and warns about slow requests.
func TimingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tw := &timingWriter{StatusRecorder: logging.NewStatusRecorder(w), start: start}
		next.ServeHTTP(tw, r)

		if d := time.Since(start); d > SlowRequestThreshold {
			logging.WarnContext(r.Context(), "slow_request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", d.Milliseconds(),
			)
		}
	})
}

// timingWriter stamps Server-Timing just before the header is flushed.
type timingWriter struct {
	*logging.StatusRecorder
	start   time.Time
	stamped bool
}

func (tw *timingWriter) stamp() {
	if tw.stamped {
		return
	}
	tw.stamped = true
	ms := float64(time.Since(tw.start).Microseconds()) / 1000
	tw.Header().Set("Server-Timing", "app;dur="+strconv.FormatFloat(ms, 'f', 3, 64))
}

func (tw *timingWriter) WriteHeader(code int) {
	tw.stamp()
	tw.StatusRecorder.WriteHeader(code)
}

func (tw *timingWriter) Write(b []byte) (int, error) {
	tw.stamp()
	return tw.StatusRecorder.Write(b)
}
