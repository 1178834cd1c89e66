package idempotency

import (
	"embed"

	"go.uber.org/fx"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo/migrations"
)

//go:embed migrations/*.json
var migrationFS embed.FS

func newMigrationSource() migrations.Source {
	return migrations.Source{Name: "idempotency", FS: migrationFS, Dir: "migrations"}
}

// NewIdempotencyModule provides the idempotency service and its cleanup
// worker.
func NewIdempotencyModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			NewMongoStore,
			NewService,
			NewCleaner,
			migrations.AsSource(newMigrationSource),
			worker.Register[*Cleaner]("idempotency-cleaner", worker.WithReady()),
		),
	)
}
