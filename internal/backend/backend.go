// Package backend opens the data store selected by configuration.
package backend

import (
	"context"
	"fmt"

	"managerclass/internal/config"
	"managerclass/internal/database"
	"managerclass/internal/logger"
	"managerclass/internal/repository"
	"managerclass/internal/repository/airtablestore"
	"managerclass/internal/repository/memstore"
)

// Backend is an open data store
type Backend struct {
	Name  string
	Store *repository.Store
	// DB is set for the SQL backend only
	DB *database.DB
}

// Open connects to the configured backend. The SQL backend is migrated
// before it is returned.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backend, error) {
	switch cfg.DataBackend {
	case config.BackendMemory:
		log.Info("using in-memory data store")
		return &Backend{Name: config.BackendMemory, Store: memstore.NewStore()}, nil

	case config.BackendAirtable:
		log.Info("using airtable data store", "base_id", cfg.AirtableBaseID)
		client := airtablestore.New(cfg.AirtableAPIKey, cfg.AirtableBaseID)
		return &Backend{Name: config.BackendAirtable, Store: client.Store()}, nil

	case config.BackendSQL:
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Info("database connection established", "type", cfg.DatabaseType)

		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed successfully")
		return &Backend{Name: config.BackendSQL, Store: repository.NewSQLStore(db), DB: db}, nil

	default:
		return nil, fmt.Errorf("unsupported data backend: %s", cfg.DataBackend)
	}
}

// Close releases the backend connection, if any
func (b *Backend) Close() error {
	if b.DB == nil {
		return nil
	}
	return b.DB.Close()
}

// tables lists the SQL tables children first
var tables = []string{
	"question_attempts",
	"chapter_history",
	"user_progress",
	"questions",
	"chapters",
	"users",
}

// Clear deletes every row of the SQL backend. Other backends refuse.
func (b *Backend) Clear(ctx context.Context, log *logger.Logger) error {
	if b.DB == nil {
		return fmt.Errorf("clearing is only supported for the %s backend", config.BackendSQL)
	}
	for _, table := range tables {
		if _, err := b.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
		log.Info("cleared table", "table", table)
	}
	return nil
}
