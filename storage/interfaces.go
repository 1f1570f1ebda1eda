package storage

import (
	"context"

	"github.com/poiesic/recall/metadata"
)

// Record is one stored row: named fields holding typed values. Flattened
// note metadata travels in fields prefixed with metadata.KeyPrefix.
type Record map[string]metadata.Value

// Clone returns a shallow copy of the record. Values are immutable by
// convention, so sharing them between copies is safe.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// KeyRecord pairs a record with its key, for scans.
type KeyRecord struct {
	Key    string
	Record Record
}

// Store provides versioned, schema-checked collections of records.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// Put writes a record under the given key, creating or replacing it.
	// The record is validated against the collection's schema first;
	// non-conforming records are rejected with ErrSchemaViolation.
	Put(ctx context.Context, collection, key string, record Record) error

	// Get retrieves a single record by key.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, collection, key string) (Record, error)

	// Delete removes a record by key.
	// Returns ErrNotFound if the record doesn't exist.
	Delete(ctx context.Context, collection, key string) error

	// Scan retrieves records in the collection, ordered by key. A non-nil
	// pred keeps only the records it matches; a nil pred matches all.
	Scan(ctx context.Context, collection string, pred func(Record) bool) ([]KeyRecord, error)

	// Version reports the collection's current schema version as stored.
	Version(ctx context.Context, collection string) (uint32, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
