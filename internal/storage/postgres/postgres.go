// Package postgres implements the storage.Backend interface using
// GORM/PostgreSQL. It wraps the shared GORM backend via composition;
// the Postgres-specific concern is connection resolution, which falls
// back to a local SQLite file when the server is unreachable so
// recording keeps working through an outage.
package postgres

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/motionlab/kinema/internal/config"
	"github.com/motionlab/kinema/internal/database"
	"github.com/motionlab/kinema/internal/logging"
	gormstorage "github.com/motionlab/kinema/internal/storage/gorm"
)

// Backend wraps the GORM backend for Postgres-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db  *gorm.DB
	log *logging.SlogManager
}

// New creates a new Postgres storage backend. Pass a nil db to have Init
// resolve a connection from configuration.
func New(db *gorm.DB, logManager *logging.SlogManager) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         db,
			LogManager: logManager,
		}),
		db:  db,
		log: logManager,
	}
}

// Init resolves the database connection if none was injected, then
// initializes the embedded GORM backend. Connection resolution goes
// through the database manager, so an unreachable Postgres server
// degrades to the configured SQLite file instead of failing startup.
func (b *Backend) Init() error {
	if b.db == nil {
		zlog := zerolog.New(os.Stderr).With().Timestamp().Str("component", "database").Logger()
		mgr := database.NewManager(zlog, config.GetString("storage.sqlite.path"))
		if err := mgr.Connect(); err != nil {
			return fmt.Errorf("failed to connect to run database: %w", err)
		}
		if mgr.UsingFallback {
			b.log.WriteLog("postgres:Init",
				"Postgres unreachable, recording to local SQLite fallback", "WARN")
		}
		b.db = mgr.DB
		b.SetDB(mgr.DB)
	}

	return b.Backend.Init()
}
