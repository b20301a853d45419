// Package relica provides a durable Store implementation using the Relica
// query builder.
//
// Relica (github.com/coregx/relica) is a lightweight, type-safe database
// query builder for Go with zero production dependencies.
//
// The SQLStore persists the tracker's two logical records (identity and
// event queue) in a single key/value table, giving embedders durable
// buffering across restarts with any of MySQL, PostgreSQL, or SQLite.
// SQLite is the natural choice for device-local storage.
//
// Example usage:
//
//	import (
//	    "database/sql"
//	    tracking "github.com/founderos/tracking-go"
//	    "github.com/founderos/tracking-go/adapters/relica"
//	    _ "github.com/mattn/go-sqlite3"
//	)
//
//	db, err := sql.Open("sqlite3", "tracking.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := relica.ApplySchema(db); err != nil {
//	    log.Fatal(err)
//	}
//
//	// driverName should be "mysql", "postgres", or "sqlite3"
//	store := relica.NewSQLStore(db, "sqlite3")
//
//	tracker, err := tracking.New(
//	    tracking.WithBrandID("acme"),
//	    tracking.WithConfig(cfg),
//	    tracking.WithStore(store),
//	)
package relica
