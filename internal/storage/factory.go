// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/timewalk/tourguide/internal/config"
	"github.com/timewalk/tourguide/internal/database"
	gormstorage "github.com/timewalk/tourguide/internal/storage/gorm"
	"github.com/timewalk/tourguide/internal/storage/memory"
	sqlitestorage "github.com/timewalk/tourguide/internal/storage/sqlite"
	"github.com/timewalk/tourguide/internal/storage/websocket"
)

// Storage type names accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSqlite    = "sqlite"
	TypePostgres  = "postgres"
	TypeWebSocket = "websocket"
	TypeNone      = "none"
)

// NewBackend creates a journal backend based on configuration. The returned
// backend is not yet initialized. TypeNone yields (nil, nil).
func NewBackend(cfg config.StorageConfig, logger *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Type {
	case TypeMemory:
		return memory.New(cfg.Memory), nil
	case TypeSqlite:
		return sqlitestorage.New(sqlitestorage.Config{
			DumpPath:      cfg.SQL.Path,
			DumpInterval:  cfg.SQL.FlushInterval * 30,
			FlushInterval: cfg.SQL.FlushInterval,
		}, logger)
	case TypePostgres:
		mgr := database.NewManager(cfg.SQL, dbLog)
		if err := mgr.ConnectPostgres(); err != nil {
			return nil, fmt.Errorf("postgres journal: %w", err)
		}
		if mgr.ShouldSaveLocal {
			logger.Warn("Postgres unavailable, journaling to local SQLite", "path", mgr.SqliteFilePath)
			return &fallbackBackend{
				Backend: gormstorage.New(gormstorage.Dependencies{
					DB:            mgr.DB,
					Logger:        logger,
					FlushInterval: cfg.SQL.FlushInterval,
				}),
				mgr: mgr,
			}, nil
		}
		return gormstorage.New(gormstorage.Dependencies{
			DB:            mgr.DB,
			Logger:        logger,
			FlushInterval: cfg.SQL.FlushInterval,
		}), nil
	case TypeWebSocket:
		return websocket.New(websocket.Config{
			URL:    cfg.WebSocket.URL,
			Secret: cfg.WebSocket.Secret,
		}, logger), nil
	case TypeNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// fallbackBackend is the gorm backend on the in-memory SQLite fallback of a
// failed Postgres connection; it dumps to disk when closed.
type fallbackBackend struct {
	*gormstorage.Backend
	mgr *database.Manager
}

func (b *fallbackBackend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.mgr.SqliteFilePath == "" {
		return nil
	}
	return b.mgr.DumpMemoryToDisk()
}
