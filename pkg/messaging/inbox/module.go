package inbox

import (
	"embed"

	"go.uber.org/fx"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo/migrations"
)

//go:embed migrations/*.json
var migrationFS embed.FS

func newMigrationSource() migrations.Source {
	return migrations.Source{Name: "inbox", FS: migrationFS, Dir: "migrations"}
}

// NewInboxModule provides the inbox store, receiver and the polling
// processor, registered as a background worker.
func NewInboxModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			NewMongoStore,
			NewReceiver,
			NewProcessor,
			migrations.AsSource(newMigrationSource),
			worker.Register[*Processor]("inbox-processor", worker.WithReady()),
		),
	)
}
