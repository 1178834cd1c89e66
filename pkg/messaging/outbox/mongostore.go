package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dqube/vibemicro-commons/pkg/persistence"
	"github.com/dqube/vibemicro-commons/pkg/persistence/mongo"
)

const collectionName = "outbox"

type mongoStore struct {
	coll mongo.Collection
}

// NewMongoStore creates a Store backed by the "outbox" collection.
func NewMongoStore(m mongo.Mongo) Store {
	return &mongoStore{
		coll: m.GetCollection(collectionName),
	}
}

func (s *mongoStore) Add(ctx context.Context, record *Record) error {
	if record.ID == "" {
		return fmt.Errorf("outbox record id is required")
	}
	if record.MessageType == "" {
		return fmt.Errorf("outbox record message type is required")
	}

	record.Status = StatusPending
	record.RetryCount = 0
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := s.coll.InsertOne(ctx, record); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to insert outbox record %s: %w", record.ID, persistence.ErrDuplicateEntity)
		}
		return fmt.Errorf("failed to insert outbox record %s: %w", record.ID, err)
	}
	return nil
}

// ClaimPending claims records one by one so that competing processors
// never claim the same record twice. A record counts as claimable when it
// is pending, or when it is processing with an expired lease.
func (s *mongoStore) ClaimPending(ctx context.Context, batchSize int, lockTimeout time.Duration) ([]Record, error) {
	now := time.Now().UTC()
	filter := bson.M{"$or": []bson.M{
		{"status": StatusPending},
		{"status": StatusProcessing, "lockExpiresAt": bson.M{"$lt": now}},
	}}
	update := bson.M{"$set": bson.M{
		"status":        StatusProcessing,
		"lockExpiresAt": now.Add(lockTimeout),
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.After)

	claimed := make([]Record, 0, batchSize)
	for len(claimed) < batchSize {
		var record Record
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record)
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("failed to claim outbox record: %w", err)
		}
		claimed = append(claimed, record)
	}
	return claimed, nil
}

func (s *mongoStore) MarkProcessed(ctx context.Context, id string) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusProcessing},
		bson.M{
			"$set":   bson.M{"status": StatusProcessed, "processedAt": time.Now().UTC()},
			"$unset": bson.M{"lockExpiresAt": "", "error": ""},
		})
	if err != nil {
		return fmt.Errorf("failed to mark outbox record %s as processed: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox record %s is not processing: %w", id, persistence.ErrEntityNotFound)
	}
	return nil
}

func (s *mongoStore) MarkFailed(ctx context.Context, id string, reason string) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusProcessing},
		bson.M{
			"$set":   bson.M{"status": StatusFailed, "error": reason},
			"$unset": bson.M{"lockExpiresAt": ""},
		})
	if err != nil {
		return fmt.Errorf("failed to mark outbox record %s as failed: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox record %s is not processing: %w", id, persistence.ErrEntityNotFound)
	}
	return nil
}

// RetryFailed consumes one retry per failed record: records whose next
// attempt still fits the budget go back to pending, the rest become
// abandoned.
func (s *mongoStore) RetryFailed(ctx context.Context, maxRetryCount int) (int64, int64, error) {
	requeueResult, err := s.coll.UpdateMany(ctx,
		bson.M{"status": StatusFailed, "retryCount": bson.M{"$lt": maxRetryCount - 1}},
		bson.M{
			"$set": bson.M{"status": StatusPending},
			"$inc": bson.M{"retryCount": 1},
		})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to requeue failed outbox records: %w", err)
	}

	abandonResult, err := s.coll.UpdateMany(ctx,
		bson.M{"status": StatusFailed, "retryCount": bson.M{"$gte": maxRetryCount - 1}},
		bson.M{
			"$set": bson.M{"status": StatusAbandoned},
			"$inc": bson.M{"retryCount": 1},
		})
	if err != nil {
		return requeueResult.ModifiedCount, 0, fmt.Errorf("failed to abandon outbox records: %w", err)
	}

	return requeueResult.ModifiedCount, abandonResult.ModifiedCount, nil
}

func (s *mongoStore) Requeue(ctx context.Context, id string) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusAbandoned},
		bson.M{
			"$set":   bson.M{"status": StatusPending, "retryCount": 0},
			"$unset": bson.M{"error": ""},
		})
	if err != nil {
		return fmt.Errorf("failed to requeue outbox record %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("outbox record %s is not abandoned: %w", id, persistence.ErrEntityNotFound)
	}
	return nil
}

func (s *mongoStore) CleanupProcessed(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.coll.DeleteMany(ctx, bson.M{
		"status":      StatusProcessed,
		"processedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup processed outbox records: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *mongoStore) Abandoned(ctx context.Context, limit int) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.M{"status": StatusAbandoned}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list abandoned outbox records: %w", err)
	}

	var records []Record
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode abandoned outbox records: %w", err)
	}
	return records, nil
}
