package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dqube/vibemicro-commons/pkg/messaging/outbox"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo"
)

func newOutboxCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and repair outbox records",
	}

	cmd.AddCommand(newOutboxAbandonedCommand())
	cmd.AddCommand(newOutboxRequeueCommand())
	cmd.AddCommand(newOutboxCleanupCommand())
	return cmd
}

func newOutboxAbandonedCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "abandoned",
		Short: "List records that exhausted their retry budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd.Context(), func(ctx context.Context, m mongo.Mongo) error {
				records, err := outbox.NewMongoStore(m).Abandoned(ctx, limit)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					fmt.Println("no abandoned records")
					return nil
				}
				for _, r := range records {
					fmt.Printf("%s\t%s\t%s\tretries=%d\t%s\n",
						r.ID, r.MessageType, r.CreatedAt.Format(time.RFC3339), r.RetryCount, r.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records to list")
	return cmd
}

func newOutboxRequeueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "requeue <id>",
		Short: "Return an abandoned record to the queue with a fresh retry budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd.Context(), func(ctx context.Context, m mongo.Mongo) error {
				if err := outbox.NewMongoStore(m).Requeue(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("record %s requeued\n", args[0])
				return nil
			})
		},
	}
}

func newOutboxCleanupCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete processed records older than the cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMongo(cmd.Context(), func(ctx context.Context, m mongo.Mongo) error {
				deleted, err := outbox.NewMongoStore(m).CleanupProcessed(ctx, olderThan)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d processed records\n", deleted)
				return nil
			})
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "age cutoff for processed records")
	return cmd
}
