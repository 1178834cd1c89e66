package worker

import "go.uber.org/fx"

type workersParams struct {
	fx.In

	Workers []worker `group:"workers"`
}

// NewWorkersModule forces instantiation of every registered worker so
// their lifecycle hooks are appended.
func NewWorkersModule() fx.Option {
	return fx.Invoke(func(p workersParams) {})
}
