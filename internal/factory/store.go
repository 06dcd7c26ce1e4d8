package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/foliolab/folio-backend/internal/config"
	"github.com/foliolab/folio-backend/internal/store"
	"github.com/foliolab/folio-backend/internal/store/postgres"
	"github.com/foliolab/folio-backend/internal/store/sqlite"
)

// NewStore constructs the store adapter selected by configuration.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info().Str("driver", "postgres").Msg("store ready")
		return postgres.New(db), nil
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		log.Info().Str("driver", "sqlite").Str("path", cfg.SQLitePath).Msg("store ready")
		return sqlite.New(db), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER: %s", cfg.DBDriver)
}
