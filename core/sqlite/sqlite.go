// Package sqlite opens SQLite databases with the driver selected at build
// time and stores scripture documents as JSON rows.
//
// Build modes:
//   - Default: pure Go modernc.org/sqlite, driver name "sqlite"
//   - CGO (-tags cgo_sqlite): mattn/go-sqlite3 via contrib/sqlite-external,
//     driver name "sqlite3"
//
// Use Open instead of sql.Open so the right driver name is used.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// DriverName returns the database/sql driver name in use.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database at path or DSN.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens the database at path in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	if strings.HasPrefix(path, "file:") {
		return Open(path + "?mode=ro")
	}
	return Open("file:" + path + "?mode=ro")
}

// MustOpen opens a SQLite database and panics on error. For tests and
// process initialization only.
func MustOpen(dataSourceName string) *sql.DB {
	db, err := Open(dataSourceName)
	if err != nil {
		panic(fmt.Sprintf("sqlite: failed to open %s: %v", dataSourceName, err))
	}
	return db
}

// Info describes the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
