// Package main provides the track-probe executable: it initializes a tracker
// from environment configuration, sends one probe event through the full
// pipeline, and flushes before exiting. Useful for verifying credentials,
// endpoint reachability, and store setup.
package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	tracking "github.com/founderos/tracking-go"
	"github.com/founderos/tracking-go/adapters/relica"
	"github.com/founderos/tracking-go/cmd/track-probe/internal/config"
	"github.com/founderos/tracking-go/model"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SimpleLogger implements tracking.Logger for standard logging.
type SimpleLogger struct{}

func (l *SimpleLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[DEBUG] "+format, args...)
}
func (l *SimpleLogger) Infof(format string, args ...interface{}) {
	log.Printf("[INFO] "+format, args...)
}
func (l *SimpleLogger) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}
func (l *SimpleLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
func (l *SimpleLogger) Info(message string) {
	log.Printf("[INFO] %s", message)
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := &SimpleLogger{}

	opts := []tracking.Option{
		tracking.WithBrandID(cfg.BrandID),
		tracking.WithConfig(cfg.Tracker),
		tracking.WithLogger(logger),
		tracking.WithDiagnostics(tracking.NewLoggingDiagnostics(logger)),
	}

	// Attach a durable store when a database is configured
	if cfg.Database.DSN != "" {
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				log.Printf("Failed to close database: %v", closeErr)
			}
		}()

		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := relica.ApplySchema(db); err != nil {
			log.Fatalf("Failed to apply store schema: %v", err)
		}

		opts = append(opts, tracking.WithStore(relica.NewSQLStore(db, cfg.Database.Driver)))
		log.Printf("Durable store attached (%s)", cfg.Database.Driver)
	}

	tracker, err := tracking.New(opts...)
	if err != nil {
		log.Fatalf("Failed to initialize tracker: %v", err)
	}

	if err := tracker.Track("probe", model.Properties{
		"source": "track-probe",
		"sentAt": time.Now().Format(time.RFC3339),
	}); err != nil {
		log.Fatalf("Failed to capture probe event: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tracker.Flush(ctx)
	if err := tracker.Close(ctx); err != nil {
		log.Fatalf("Failed to close tracker: %v", err)
	}

	if dropped := tracker.DroppedBatches(); dropped > 0 {
		log.Fatalf("Probe batch was dropped (dropped=%d); check credentials and endpoint", dropped)
	}
	log.Println("Probe event delivered")
}
