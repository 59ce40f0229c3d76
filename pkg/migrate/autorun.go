package migrate

import (
	"context"
	"fmt"

	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/db"
	"github.com/shopsense/storefront-backend/pkg/db/models"
	"github.com/shopsense/storefront-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations in dev when AutoMigrate is on.
// sqlite databases are always built from the models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.IsSQLite() {
		return AutoMigrateModels(ctx, logg, client)
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "migrate.dev_autorun.start")
	if err := Run(ctx, sqlDB, Migrations(), "up", nil); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.dev_autorun.done")
	return nil
}

// AutoMigrateModels creates or updates every storefront table from the gorm models.
func AutoMigrateModels(ctx context.Context, logg *logger.Logger, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client is required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate models: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "models", len(models.All())), "schema bootstrapped from models")
	}
	return nil
}
