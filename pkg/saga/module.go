package saga

import (
	"embed"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/worker"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo/migrations"
)

//go:embed migrations/*.json
var migrationFS embed.FS

func newMigrationSource() migrations.Source {
	return migrations.Source{Name: "saga", FS: migrationFS, Dir: "migrations"}
}

type managerParams struct {
	fx.In

	Store       Store
	Definitions []Definition `group:"saga-definitions"`
	Log         *zap.Logger
}

// AsDefinition annotates a Definition constructor for the manager.
func AsDefinition(constructor any) any {
	return fx.Annotate(constructor,
		fx.As(new(Definition)),
		fx.ResultTags(`group:"saga-definitions"`))
}

// NewSagaModule provides the saga store, manager and cleanup worker.
// Definitions are collected from the "saga-definitions" group; register
// them with AsDefinition.
func NewSagaModule() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			NewMongoStore,
			provideManager,
			NewCleaner,
			migrations.AsSource(newMigrationSource),
			worker.Register[*Cleaner]("saga-cleaner", worker.WithReady()),
		),
	)
}

func provideManager(p managerParams) (Manager, error) {
	return NewManager(p.Store, p.Definitions, p.Log)
}
