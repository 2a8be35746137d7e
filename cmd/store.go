package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-resolver/internal/config"
	"github.com/kozaktomas/face-resolver/internal/database/postgres"
	"github.com/kozaktomas/face-resolver/internal/embedding"
)

// openStore connects to PostgreSQL and runs migrations sized for the model.
// The caller closes the returned pool.
func openStore(ctx context.Context, cfg *config.Config, model embedding.Model) (*postgres.Store, *postgres.Pool, error) {
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := postgres.Migrate(ctx, pool, model.Dimensions()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres.NewStore(pool), pool, nil
}
