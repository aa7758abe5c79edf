package domain

import "context"

// RecordRepository is a storage backend for the record store. Collections
// keep insertion order.
type RecordRepository interface {
	Collections(ctx context.Context) ([]string, error)
	List(ctx context.Context, coll string) ([]Record, error)
	Get(ctx context.Context, coll, id string) (Record, error)
	// Insert stores r, assigning an id when r has none.
	Insert(ctx context.Context, coll string, r Record) (Record, error)
	// Update replaces the record with fn's result, atomically per record.
	Update(ctx context.Context, coll, id string, fn func(Record) (Record, error)) (Record, error)
	Delete(ctx context.Context, coll, id string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// StoreClient talks to a record store over HTTP. Bodies are encoded from in
// and decoded into out.
type StoreClient interface {
	List(ctx context.Context, coll string, out any) error
	Create(ctx context.Context, coll string, in, out any) error
	Patch(ctx context.Context, coll, id string, patch, out any) error
	Replace(ctx context.Context, coll, id string, in, out any) error
	Delete(ctx context.Context, coll, id string) error
}
