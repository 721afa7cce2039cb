//go:build cgo_sqlite

// Build with: CGO_ENABLED=1 go build -tags cgo_sqlite
package sqlite

import (
	sqliteexternal "github.com/FocuswithJustin/Granthalaya/contrib/sqlite-external"
)

const (
	driverName    = sqliteexternal.DriverName
	driverType    = "cgo"
	driverPackage = sqliteexternal.DriverPackage + " (via contrib/sqlite-external)"
)
