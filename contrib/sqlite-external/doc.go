// Package sqliteexternal registers the CGO SQLite driver
// (github.com/mattn/go-sqlite3) for builds that opt into it:
//
//	CGO_ENABLED=1 go build -tags cgo_sqlite ./cmd/granthalaya
//
// Without the tag, Granthalaya uses the pure Go driver from
// modernc.org/sqlite and builds as a single static binary.
// See github.com/FocuswithJustin/Granthalaya/core/sqlite.
package sqliteexternal
