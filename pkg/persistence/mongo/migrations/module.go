package migrations

import (
	"context"
	"fmt"

	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type migratorParams struct {
	fx.In

	Lc      fx.Lifecycle
	Log     *zap.Logger
	Conf    Config
	Mongo   mongo.Admin
	Sources []Source `group:"migrations"`
}

// NewMigrationsModule provides a Migrator that applies every migration
// source contributed via the "migrations" group. When auto-migrate is
// enabled the sources are applied on startup, after the mongo connection
// is established.
func NewMigrationsModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			provideMigrator,
		),
		fx.Invoke(func(m Migrator) {}),
	)
}

// AsSource annotates a Source constructor for the migrations group.
func AsSource(constructor any) any {
	return fx.Annotate(constructor, fx.ResultTags(`group:"migrations"`))
}

func provideMigrator(p migratorParams) (Migrator, error) {
	m := newMigrator(p.Mongo.GetDatabase(), p.Conf, p.Log)

	if !p.Conf.Enabled {
		p.Log.Info("migrations disabled, migrator available for manual use")
		return m, nil
	}

	if p.Conf.AutoMigrate {
		p.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				for _, source := range p.Sources {
					if err := m.Apply(source); err != nil {
						return fmt.Errorf("failed to apply migration source %q: %w", source.Name, err)
					}
				}
				return nil
			},
		})
		p.Log.Info("migrations auto-run is enabled",
			zap.Int("sources", len(p.Sources)),
			zap.Duration("locking-timeout", p.Conf.GetLockingTimeoutDuration()))
	}

	return m, nil
}
