// deliveryctl is the operator tool for the delivery substrate: it
// inspects and repairs outbox dead letters and saga instances directly
// against the store, without running the processors.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dqube/vibemicro-commons/pkg/core/config"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo"
)

func main() {
	root := &cobra.Command{
		Use:           "deliveryctl",
		Short:         "Operate the outbox, inbox and saga stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newOutboxCommand())
	root.AddCommand(newSagaCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withMongo connects to the configured database, runs fn and disconnects.
func withMongo(ctx context.Context, fn func(ctx context.Context, m mongo.Mongo) error) error {
	_, v, err := config.Load()
	if err != nil {
		return err
	}

	conf, err := mongo.NewConfig(v)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	admin, err := mongo.New(log, conf)
	if err != nil {
		return err
	}
	if err := admin.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		_ = admin.Disconnect(ctx)
	}()

	return fn(ctx, admin)
}
