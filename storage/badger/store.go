// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recall/storage"
)

// store implements storage.Store on BadgerDB.
type store struct {
	backend *backend
	logger  *slog.Logger
	specs   map[string]storage.CollectionSpec
}

var _ storage.Store = (*store)(nil)

// Option configures a store.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// Open opens (or creates) a store at the given path, with the given
// collections declared. Stored data behind a declared schema version is
// migrated forward before Open returns; a migration chain with gaps fails
// with storage.ErrMigrationMissing before any data is touched.
func Open(ctx context.Context, path string, specs []storage.CollectionSpec, migrations *storage.Migrations, opts ...Option) (storage.Store, error) {
	return open(ctx, path, false, specs, migrations, opts...)
}

// OpenMemory opens a store backed by memory only. Used by tests and by
// ephemeral command-line runs.
func OpenMemory(ctx context.Context, specs []storage.CollectionSpec, migrations *storage.Migrations, opts ...Option) (storage.Store, error) {
	return open(ctx, "", true, specs, migrations, opts...)
}

func open(ctx context.Context, path string, inMemory bool, specs []storage.CollectionSpec, migrations *storage.Migrations, opts ...Option) (storage.Store, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	byName := make(map[string]storage.CollectionSpec, len(specs))
	for _, spec := range specs {
		if spec.Name == "" || strings.Contains(spec.Name, ":") {
			return nil, fmt.Errorf("%w: bad collection name %q", storage.ErrUnknownCollection, spec.Name)
		}
		if _, dup := byName[spec.Name]; dup {
			return nil, fmt.Errorf("collection %q declared twice", spec.Name)
		}
		byName[spec.Name] = spec
	}

	b, err := openBackend(path, inMemory, cfg.logger)
	if err != nil {
		return nil, err
	}

	s := &store{
		backend: b,
		logger:  cfg.logger,
		specs:   byName,
	}

	if err := s.migrate(ctx, migrations); err != nil {
		b.close()
		return nil, err
	}

	return s, nil
}

func (s *store) spec(collection string) (storage.CollectionSpec, error) {
	spec, ok := s.specs[collection]
	if !ok {
		return storage.CollectionSpec{}, fmt.Errorf("%w: %q", storage.ErrUnknownCollection, collection)
	}
	return spec, nil
}

// Put writes a record under the given key, creating or replacing it.
func (s *store) Put(ctx context.Context, collection, key string, record storage.Record) error {
	spec, err := s.spec(collection)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w: collection %q rejects empty keys", storage.ErrSchemaViolation, collection)
	}
	if err := spec.Validate(record); err != nil {
		return err
	}

	return s.backend.withTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeRecordKey(collection, key), storage.MarshalRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a single record by key.
func (s *store) Get(ctx context.Context, collection, key string) (storage.Record, error) {
	if _, err := s.spec(collection); err != nil {
		return nil, err
	}

	var record storage.Record
	err := s.backend.withTx(func(tx *badger.Txn) error {
		var err error
		record, err = readRecord(tx, makeRecordKey(collection, key))
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, collection, key)
		}
		return nil
	}, false)
	return record, err
}

// Delete removes a record by key.
func (s *store) Delete(ctx context.Context, collection, key string) error {
	if _, err := s.spec(collection); err != nil {
		return err
	}

	return s.backend.withTx(func(tx *badger.Txn) error {
		recordKey := makeRecordKey(collection, key)
		if _, err := tx.Get(recordKey); err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: %s/%s", storage.ErrNotFound, collection, key)
			}
			return err
		}
		if err := tx.Delete(recordKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Scan retrieves records in the collection, ordered by key. A non-nil pred
// keeps only the records it matches.
func (s *store) Scan(ctx context.Context, collection string, pred func(storage.Record) bool) ([]storage.KeyRecord, error) {
	if _, err := s.spec(collection); err != nil {
		return nil, err
	}

	var rows []storage.KeyRecord
	err := s.backend.withTx(func(tx *badger.Txn) error {
		prefix := makeRecordPrefix(collection)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			key := string(item.Key()[len(prefix):])

			var record storage.Record
			if err := item.Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalRecord(val)
				return err
			}); err != nil {
				return fmt.Errorf("record %s/%s: %w", collection, key, err)
			}
			if pred != nil && !pred(record) {
				continue
			}
			rows = append(rows, storage.KeyRecord{Key: key, Record: record})
		}
		return nil
	}, false)
	return rows, err
}

// Version reports the collection's current schema version as stored.
func (s *store) Version(ctx context.Context, collection string) (uint32, error) {
	if _, err := s.spec(collection); err != nil {
		return 0, err
	}

	var version uint32
	err := s.backend.withTx(func(tx *badger.Txn) error {
		var err error
		version, err = readVersion(tx, collection)
		return err
	}, false)
	return version, err
}

// Close closes the store and releases resources.
func (s *store) Close() error {
	return s.backend.close()
}

// readRecord reads a record from the transaction. Returns nil, nil when the
// key does not exist.
func readRecord(tx *badger.Txn, key []byte) (storage.Record, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var record storage.Record
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		record, unmarshalErr = storage.UnmarshalRecord(val)
		return unmarshalErr
	})
	return record, err
}

// readVersion reads a collection's stored schema version. Collections that
// were never written are at version 0.
func readVersion(tx *badger.Txn, collection string) (uint32, error) {
	item, err := tx.Get(makeVersionKey(collection))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}

	var version uint32
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		version, unmarshalErr = storage.UnmarshalVersion(val)
		return unmarshalErr
	})
	return version, err
}
