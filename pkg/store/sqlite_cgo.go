//go:build cgo_sqlite

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

// sqliteDriver is the database/sql driver name of the cgo SQLite binding.
const sqliteDriver = "sqlite3"
