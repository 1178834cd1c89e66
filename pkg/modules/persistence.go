package modules

import (
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo/migrations"
	"go.uber.org/fx"
)

// NewPersistenceModule provides persistence functionality: mongo,
// transaction manager and migrations.
func NewPersistenceModule() fx.Option {
	return fx.Options(
		mongo.NewMongoModule(),
		migrations.NewMigrationsModule(),
	)
}
