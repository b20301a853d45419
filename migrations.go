package tracking

import "embed"

// MigrationFiles contains the SQL migration files embedded in the binary.
// They create the key/value table used by the Relica store adapter. Users
// can apply them with their preferred migration tool (goose, golang-migrate,
// atlas, etc.) or call the adapter's ApplySchema helper directly.
//
// Example with goose:
//
//	import (
//	    "github.com/pressly/goose/v3"
//	    tracking "github.com/founderos/tracking-go"
//	)
//
//	goose.SetBaseFS(tracking.MigrationFiles)
//	if err := goose.Up(db, "migrations"); err != nil {
//	    log.Fatal(err)
//	}
//
//go:embed migrations/*.sql
var MigrationFiles embed.FS
