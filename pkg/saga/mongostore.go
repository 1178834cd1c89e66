package saga

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

const collectionName = "sagas"

var terminalStates = []State{StateCompleted, StateFailed, StateCancelled}

type mongoStore struct {
	coll mongo.Collection
}

// NewMongoStore creates a Store backed by the "sagas" collection.
func NewMongoStore(m mongo.Mongo) Store {
	return &mongoStore{
		coll: m.GetCollection(collectionName),
	}
}

func (s *mongoStore) Insert(ctx context.Context, instance *Saga) error {
	if instance.ID == "" {
		return fmt.Errorf("saga id is required")
	}
	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = time.Now().UTC()
	}
	instance.Version = 1

	if _, err := s.coll.InsertOne(ctx, instance); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("saga %s already exists: %w", instance.ID, persistence.ErrDuplicateEntity)
		}
		return fmt.Errorf("failed to insert saga %s: %w", instance.ID, err)
	}
	return nil
}

func (s *mongoStore) Update(ctx context.Context, instance *Saga) error {
	currentVersion := instance.Version
	instance.Version++

	result, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": instance.ID, "version": currentVersion},
		instance)
	if err != nil {
		instance.Version = currentVersion
		return fmt.Errorf("failed to update saga %s: %w", instance.ID, err)
	}
	if result.MatchedCount == 0 {
		instance.Version = currentVersion
		return fmt.Errorf("saga %s version %d is stale: %w", instance.ID, currentVersion, persistence.ErrEntityNotFound)
	}
	return nil
}

func (s *mongoStore) ByID(ctx context.Context, id string) (*Saga, error) {
	var instance Saga
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&instance)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, fmt.Errorf("saga %s: %w", id, persistence.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get saga %s: %w", id, err)
	}
	return &instance, nil
}

func (s *mongoStore) ByCorrelationID(ctx context.Context, correlationID string) ([]Saga, error) {
	return s.find(ctx,
		bson.M{"correlationId": correlationID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *mongoStore) ByNameAndCorrelationID(ctx context.Context, name, correlationID string) ([]Saga, error) {
	return s.find(ctx,
		bson.M{"name": name, "correlationId": correlationID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *mongoStore) Active(ctx context.Context) ([]Saga, error) {
	return s.find(ctx,
		bson.M{"state": bson.M{"$nin": terminalStates}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (s *mongoStore) Failed(ctx context.Context, limit int) ([]Saga, error) {
	return s.find(ctx,
		bson.M{"state": StateFailed},
		options.Find().
			SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
			SetLimit(int64(limit)))
}

func (s *mongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Saga, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sagas: %w", err)
	}

	var instances []Saga
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, fmt.Errorf("failed to decode sagas: %w", err)
	}
	return instances, nil
}

func (s *mongoStore) CleanupCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	result, err := s.coll.DeleteMany(ctx, bson.M{
		"state":     bson.M{"$in": terminalStates},
		"updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup terminal sagas: %w", err)
	}
	return result.DeletedCount, nil
}
