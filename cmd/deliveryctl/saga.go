package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo"
	"github.com/dqube/vibemicro-commons/pkg/saga"
)

func newSagaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saga",
		Short: "Inspect and clean up saga instances",
	}

	cmd.AddCommand(newSagaFailedCommand())
	cmd.AddCommand(newSagaCleanupCommand())
	return cmd
}

func newSagaFailedCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List failed saga instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd.Context(), func(ctx context.Context, m mongo.Mongo) error {
				instances, err := saga.NewMongoStore(m).Failed(ctx, limit)
				if err != nil {
					return err
				}
				if len(instances) == 0 {
					fmt.Println("no failed sagas")
					return nil
				}
				for _, s := range instances {
					fmt.Printf("%s\t%s\t%s\t%s\n", s.ID, s.Name, s.CorrelationID, s.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum instances to list")
	return cmd
}

func newSagaCleanupCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete terminal saga instances older than the cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd.Context(), func(ctx context.Context, m mongo.Mongo) error {
				deleted, err := saga.NewMongoStore(m).CleanupCompleted(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d terminal sagas\n", deleted)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "age cutoff for terminal sagas")
	return cmd
}
