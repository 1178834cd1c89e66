package outbox

import (
	"embed"

	"go.uber.org/fx"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo/migrations"
)

//go:embed migrations/*.json
var migrationFS embed.FS

func newMigrationSource() migrations.Source {
	return migrations.Source{Name: "outbox", FS: migrationFS, Dir: "migrations"}
}

// NewOutboxModule provides the outbox store and the polling processor,
// registered as a background worker.
func NewOutboxModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			NewMongoStore,
			NewProcessor,
			migrations.AsSource(newMigrationSource),
			worker.Register[*Processor]("outbox-processor", worker.WithReady()),
		),
	)
}
