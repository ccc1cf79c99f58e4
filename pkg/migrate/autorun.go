package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/db"
	"github.com/angelmondragon/resale-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup in dev when
// RESALE_AUTO_MIGRATE is set. Other environments migrate through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "dev migrations complete")
	return nil
}
