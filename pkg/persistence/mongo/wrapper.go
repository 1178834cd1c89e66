package mongo

import (
	"context"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionWrapper applies a query timeout to every operation and routes
// calls through the bulkhead when one is configured. Transactional contexts
// are passed through untouched so the session controls lifetimes.
type CollectionWrapper struct {
	coll     *mongodriver.Collection
	timeout  time.Duration
	bulkhead *Bulkhead
}

func newCollectionWrapper(coll *mongodriver.Collection, timeout time.Duration, bulkhead *Bulkhead) *CollectionWrapper {
	return &CollectionWrapper{coll: coll, timeout: timeout, bulkhead: bulkhead}
}

func (w *CollectionWrapper) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.timeout <= 0 {
		return ctx, func() {}
	}
	if mongodriver.SessionFromContext(ctx) != nil {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, w.timeout)
}

func execute[T any](w *CollectionWrapper, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	c, cancel := w.withTimeout(ctx)
	defer cancel()

	if w.bulkhead == nil {
		return fn(c)
	}

	var result T
	err := w.bulkhead.Execute(c, func() error {
		var err error
		result, err = fn(c)
		return err
	})
	return result, err
}

func (w *CollectionWrapper) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongodriver.SingleResult {
	result, err := execute(w, ctx, func(ctx context.Context) (*mongodriver.SingleResult, error) {
		return w.coll.FindOne(ctx, filter, opts...), nil
	})
	if err != nil {
		return mongodriver.NewSingleResultFromDocument(nil, err, nil)
	}
	return result
}

func (w *CollectionWrapper) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongodriver.Cursor, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.Cursor, error) {
		return w.coll.Find(ctx, filter, opts...)
	})
}

func (w *CollectionWrapper) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongodriver.InsertOneResult, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.InsertOneResult, error) {
		return w.coll.InsertOne(ctx, document, opts...)
	})
}

func (w *CollectionWrapper) UpdateOne(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongodriver.UpdateResult, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.UpdateResult, error) {
		return w.coll.UpdateOne(ctx, filter, update, opts...)
	})
}

func (w *CollectionWrapper) UpdateMany(ctx context.Context, filter, update any, opts ...*options.UpdateOptions) (*mongodriver.UpdateResult, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.UpdateResult, error) {
		return w.coll.UpdateMany(ctx, filter, update, opts...)
	})
}

func (w *CollectionWrapper) ReplaceOne(ctx context.Context, filter, replacement any, opts ...*options.ReplaceOptions) (*mongodriver.UpdateResult, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.UpdateResult, error) {
		return w.coll.ReplaceOne(ctx, filter, replacement, opts...)
	})
}

func (w *CollectionWrapper) DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongodriver.DeleteResult, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.DeleteResult, error) {
		return w.coll.DeleteOne(ctx, filter, opts...)
	})
}

func (w *CollectionWrapper) DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongodriver.DeleteResult, error) {
	return execute(w, ctx, func(ctx context.Context) (*mongodriver.DeleteResult, error) {
		return w.coll.DeleteMany(ctx, filter, opts...)
	})
}

func (w *CollectionWrapper) FindOneAndUpdate(ctx context.Context, filter, update any, opts ...*options.FindOneAndUpdateOptions) *mongodriver.SingleResult {
	result, err := execute(w, ctx, func(ctx context.Context) (*mongodriver.SingleResult, error) {
		return w.coll.FindOneAndUpdate(ctx, filter, update, opts...), nil
	})
	if err != nil {
		return mongodriver.NewSingleResultFromDocument(nil, err, nil)
	}
	return result
}

func (w *CollectionWrapper) CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error) {
	return execute(w, ctx, func(ctx context.Context) (int64, error) {
		return w.coll.CountDocuments(ctx, filter, opts...)
	})
}

func (w *CollectionWrapper) Name() string {
	return w.coll.Name()
}
