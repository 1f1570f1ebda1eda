package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/recall/index"
	"github.com/poiesic/recall/metadata"
	"github.com/poiesic/recall/storage"
)

const (
	// SnapshotCollection is the store collection holding the persisted
	// index snapshot.
	SnapshotCollection = "index"

	// SnapshotSchemaVersion is the current schema version of the snapshot
	// collection.
	SnapshotSchemaVersion = 1

	// snapshotKey is the single record key the snapshot lives under.
	snapshotKey = "latest"

	fieldSnapshot  = "snapshot"
	fieldDimension = "dimension"
	fieldSavedAt   = "savedAt"
)

// SnapshotSpec returns the collection spec for snapshot persistence.
func SnapshotSpec() storage.CollectionSpec {
	return storage.CollectionSpec{
		Name:    SnapshotCollection,
		Version: SnapshotSchemaVersion,
		Fields: map[string]storage.FieldSpec{
			fieldSnapshot:  {Kind: metadata.KindBytes, Required: true},
			fieldDimension: {Kind: metadata.KindInt, Required: true},
			fieldSavedAt:   {Kind: metadata.KindInt},
		},
	}
}

// RegisterSnapshotMigrations registers the migration chain for the snapshot
// collection.
func RegisterSnapshotMigrations(reg *storage.Migrations) {
	// 0 -> 1: initial schema. Nothing to rewrite.
	reg.Register(SnapshotCollection, 0, func(ctx context.Context, records map[string]storage.Record) error {
		return nil
	})
}

// persistSnapshot serializes the current index and writes it through the
// store. It runs inside the mutating job, so a settled ticket means the
// change is durable.
func (s *Service) persistSnapshot(ctx context.Context) error {
	data, err := index.Snapshot(s.index)
	if err != nil {
		return fmt.Errorf("snapshot index: %w", err)
	}
	record := storage.Record{
		fieldSnapshot:  metadata.Bytes(data),
		fieldDimension: metadata.Int(int64(s.dim)),
		fieldSavedAt:   metadata.Int(time.Now().UnixMilli()),
	}
	if err := s.store.Put(ctx, SnapshotCollection, snapshotKey, record); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// restore loads the persisted snapshot and rebuilds the index from it. An
// absent snapshot yields an empty index. A corrupt or incompatible snapshot
// also yields an empty index and raises the re-index flag: notes are the
// durable source of truth, so nothing is lost.
func (s *Service) restore(ctx context.Context) (*index.Hybrid, error) {
	record, err := s.store.Get(ctx, SnapshotCollection, snapshotKey)
	if errors.Is(err, storage.ErrNotFound) {
		return index.NewHybrid(s.dim, index.WithLogger(s.logger))
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	data, ok := record[fieldSnapshot].AsBytes()
	if !ok {
		s.logger.Warn("snapshot record has no usable payload, starting empty")
		s.needsReindex.Store(true)
		return index.NewHybrid(s.dim, index.WithLogger(s.logger))
	}

	idx, err := index.Restore(data, s.dim, index.WithLogger(s.logger))
	if err != nil {
		if errors.Is(err, index.ErrSnapshotCorrupt) || errors.Is(err, index.ErrSnapshotIncompatible) {
			s.logger.Warn("discarding unusable index snapshot", "err", err)
			s.needsReindex.Store(true)
			return index.NewHybrid(s.dim, index.WithLogger(s.logger))
		}
		return nil, err
	}
	return idx, nil
}
