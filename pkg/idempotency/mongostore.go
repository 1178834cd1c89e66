package idempotency

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

const collectionName = "idempotency"

type mongoStore struct {
	coll mongo.Collection
}

// NewMongoStore creates a Store backed by the "idempotency" collection.
func NewMongoStore(m mongo.Mongo) Store {
	return &mongoStore{
		coll: m.GetCollection(collectionName),
	}
}

func (s *mongoStore) Get(ctx context.Context, key string) (*Record, error) {
	var record Record
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&record)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("idempotency record %s: %w", key, persistence.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency record %s: %w", key, err)
	}

	// expired records are reaped lazily; the caller sees them as absent
	if record.Expired(time.Now().UTC()) {
		return nil, fmt.Errorf("idempotency record %s expired: %w", key, persistence.ErrEntityNotFound)
	}
	return &record, nil
}

func (s *mongoStore) Put(ctx context.Context, record *Record) error {
	if record.Key == "" {
		return fmt.Errorf("idempotency record key is required")
	}
	if record.ExecutedAt.IsZero() {
		record.ExecutedAt = time.Now().UTC()
	}

	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": record.Key},
		record,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to put idempotency record %s: %w", record.Key, err)
	}
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete idempotency record %s: %w", key, err)
	}
	return nil
}

func (s *mongoStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{
		"expiresAt": bson.M{"$lt": time.Now().UTC()},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency records: %w", err)
	}
	return result.DeletedCount, nil
}
