package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/recall/storage"
)

// migrate brings every declared collection from its stored schema version to
// the declared one. The full chain is planned per collection before any step
// runs. Each step rewrites the collection's records and then advances the
// stored version in its own transaction: a crash between the two re-runs the
// step on the next open, which idempotent migrations absorb.
func (s *store) migrate(ctx context.Context, migrations *storage.Migrations) error {
	if migrations == nil {
		migrations = storage.NewMigrations()
	}

	names := make([]string, 0, len(s.specs))
	for name := range s.specs {
		names = append(names, name)
	}
	sort.Strings(names)

	// Plan everything first so a gap anywhere fails before data is touched.
	type pending struct {
		name   string
		stored uint32
		plan   []storage.Migration
	}
	var work []pending
	for _, name := range names {
		spec := s.specs[name]

		var stored uint32
		err := s.backend.withTx(func(tx *badger.Txn) error {
			var err error
			stored, err = readVersion(tx, name)
			return err
		}, false)
		if err != nil {
			return fmt.Errorf("collection %q: %w", name, err)
		}

		plan, err := migrations.Plan(name, stored, spec.Version)
		if err != nil {
			return err
		}
		if len(plan) > 0 {
			work = append(work, pending{name: name, stored: stored, plan: plan})
		}
	}

	for _, w := range work {
		for i, step := range w.plan {
			if err := ctx.Err(); err != nil {
				return err
			}
			from := w.stored + uint32(i)
			if err := s.runMigrationStep(ctx, w.name, from, step); err != nil {
				return fmt.Errorf("collection %q step %d to %d: %w", w.name, from, from+1, err)
			}
		}
	}
	return nil
}

// runMigrationStep loads the collection, applies one migration and rewrites
// the stored records, then advances the version separately.
func (s *store) runMigrationStep(ctx context.Context, collection string, from uint32, step storage.Migration) error {
	records := make(map[string]storage.Record)
	originalKeys := make(map[string]bool)

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
				return fmt.Errorf("record %q: %w", key, err)
			}
			records[key] = record
			originalKeys[key] = true
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	s.logger.Info("migrating collection",
		"collection", collection, "from", from, "to", from+1, "records", len(records))

	if err := step(ctx, records); err != nil {
		return err
	}

	// Rewrite through a write batch; it chunks commits internally, so large
	// collections don't overflow a single transaction.
	wb := s.backend.db.NewWriteBatch()
	defer wb.Cancel()

	for key := range originalKeys {
		if _, kept := records[key]; !kept {
			if err := wb.Delete(makeRecordKey(collection, key)); err != nil {
				return err
			}
		}
	}
	for key, record := range records {
		if err := wb.Set(makeRecordKey(collection, key), storage.MarshalRecord(record)); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	// Version advance in its own transaction, after the rewrite is durable.
	return s.backend.withTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeVersionKey(collection), storage.MarshalVersion(from + 1)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
