package relica

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coregx/relica"

	tracking "github.com/founderos/tracking-go"
)

// record is the row shape of the tracking_kv table.
type record struct {
	ID        int64     `db:"id"`
	Key       string    `db:"k"`
	Value     string    `db:"v"`
	UpdatedAt time.Time `db:"updated_at"`
}

// TableName returns the database table name for record.
func (r *record) TableName() string {
	return defaultTableName
}

const defaultTableName = "tracking_kv"

// Schema for the key/value table, mirrored in migrations/0001.
const schema = `CREATE TABLE IF NOT EXISTS tracking_kv (
    id INTEGER PRIMARY KEY,
    k VARCHAR(255) NOT NULL UNIQUE,
    v TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`

// ApplySchema creates the key/value table if it does not exist.
// Equivalent to applying the embedded migration files with a migration tool.
func ApplySchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// SQLStore implements tracking.Store over a SQL database using Relica.
// Each logical record (identity, event queue) occupies one row keyed by its
// storage key name.
type SQLStore struct {
	db *relica.DB
}

// NewSQLStore creates a SQL-backed store.
//
// The db parameter should be an *sql.DB connected to MySQL, PostgreSQL, or
// SQLite. The driverName should be "mysql", "postgres", or "sqlite3".
func NewSQLStore(sqlDB *sql.DB, driverName string) *SQLStore {
	return &SQLStore{
		db: relica.WrapDB(sqlDB, driverName),
	}
}

// Get retrieves the value stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var row record

	err := s.db.WithContext(ctx).Select("*").
		From(defaultTableName).
		Where("k = ?", key).
		WithContext(ctx).
		One(&row)

	if errors.Is(err, sql.ErrNoRows) {
		return "", tracking.ErrNoData
	}
	if err != nil {
		return "", tracking.NewErrorWithCause(tracking.ErrCodePersistence, "failed to load record", err)
	}

	return row.Value, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	var row record

	err := s.db.WithContext(ctx).Select("*").
		From(defaultTableName).
		Where("k = ?", key).
		WithContext(ctx).
		One(&row)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		row = record{Key: key, Value: value, UpdatedAt: time.Now()}
		if err := s.db.WithContext(ctx).Model(&row).Table(defaultTableName).Insert(); err != nil {
			return tracking.NewErrorWithCause(tracking.ErrCodePersistence, "failed to insert record", err)
		}
		return nil
	case err != nil:
		return tracking.NewErrorWithCause(tracking.ErrCodePersistence, "failed to load record", err)
	}

	row.Value = value
	row.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Model(&row).Table(defaultTableName).Update(); err != nil {
		return tracking.NewErrorWithCause(tracking.ErrCodePersistence, "failed to update record", err)
	}
	return nil
}

// Remove deletes the value stored under key.
// Removing an absent key is not an error.
func (s *SQLStore) Remove(ctx context.Context, key string) error {
	var row record

	err := s.db.WithContext(ctx).Select("*").
		From(defaultTableName).
		Where("k = ?", key).
		WithContext(ctx).
		One(&row)

	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return tracking.NewErrorWithCause(tracking.ErrCodePersistence, "failed to load record", err)
	}

	if err := s.db.WithContext(ctx).Model(&row).Table(defaultTableName).Delete(); err != nil {
		return tracking.NewErrorWithCause(tracking.ErrCodePersistence, "failed to delete record", err)
	}
	return nil
}
