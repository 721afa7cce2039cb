package api

import "time"

// Config holds server configuration.
type Config struct {
	Port           int
	TLS            TLSConfig
	Auth           AuthConfig
	RateLimit      RateLimiterConfig // RequestsPerMinute 0 disables limiting
	AllowedOrigins []string          // CORS and websocket origins (empty = allow all)

	// ListingMaxAge, when positive, is sent as Cache-Control max-age on
	// the listing endpoint.
	ListingMaxAge time.Duration
	// ShutdownGrace bounds how long Run waits for in-flight requests.
	ShutdownGrace time.Duration
	// MaxResults caps ranked full-text searches.
	MaxResults int
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// DefaultMaxResults caps ranked searches when Config.MaxResults is zero.
const DefaultMaxResults = 200
