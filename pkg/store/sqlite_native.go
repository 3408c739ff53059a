//go:build !cgo_sqlite

package store

import (
	_ "modernc.org/sqlite"
)

// sqliteDriver is the database/sql driver name of the pure Go SQLite port.
const sqliteDriver = "sqlite"
