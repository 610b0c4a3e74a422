package di

import (
	"context"
	"fmt"

	"github.com/aristath/holdings-risk/internal/config"
	"github.com/aristath/holdings-risk/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens holdings.db and applies its schema.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	holdingsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "holdings",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize holdings database: %w", err)
	}

	if err := holdingsDB.Migrate(context.Background()); err != nil {
		holdingsDB.Close()
		return nil, fmt.Errorf("failed to migrate holdings database: %w", err)
	}
	container.HoldingsDB = holdingsDB

	log.Info().Str("path", holdingsDB.Path()).Msg("Holdings database ready")

	return container, nil
}
