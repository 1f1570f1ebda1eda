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


package reindex

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Config holds configuration for a rebuild run.
type Config struct {
	// BatchSize is the number of records scanned per batch
	BatchSize int

	// ReportInterval is how often to report progress (number of notes)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
	}
}

// Stats summarizes a completed rebuild run.
type Stats struct {
	// Scanned is the number of note records read from the store.
	Scanned int

	// Indexed is the number of notes the index accepted.
	Indexed int

	// Elapsed is the wall time of the run, scan through rebuild.
	Elapsed time.Duration
}

// Indexer is the slice of the index service a rebuild drives.
type Indexer interface {
	ReindexAll(ctx context.Context, notes []*core.Note) (int, error)
	NeedsReindex() bool
}

// Reindexer rebuilds the search index from the durable notes collection.
type Reindexer struct {
	store    storage.Store
	indexer  Indexer
	config   *Config
	progress io.Writer
	iterator *RecordIterator
}

// NewReindexer creates a reindexer.
// progress: where to write progress output (typically os.Stderr); nil discards it.
func NewReindexer(store storage.Store, indexer Indexer, config *Config, progress io.Writer) (*Reindexer, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reindexer{
		store:    store,
		indexer:  indexer,
		config:   config,
		progress: progress,
		iterator: NewRecordIterator(store, storage.NotesCollection, config.BatchSize),
	}, nil
}

// Run rebuilds the index from every stored note: one scan of the notes
// collection, then a single rebuild handed to the indexer. Running against
// an empty collection still rebuilds, which clears a stale index.
func (r *Reindexer) Run(ctx context.Context) (Stats, error) {
	tracker := NewProgressTracker(r.progress, 0, r.config.ReportInterval)
	tracker.Start()

	var notes []*core.Note
	err := r.iterator.ForEach(ctx, func(batch []storage.KeyRecord) error {
		for _, kr := range batch {
			note, err := storage.RecordToNote(kr.Record)
			if err != nil {
				return fmt.Errorf("decode note %q: %w", kr.Key, err)
			}
			notes = append(notes, note)
		}

		tracker.Increment(len(batch))
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("scan notes: %w", err)
	}
	tracker.Finish()

	if len(notes) == 0 {
		fmt.Fprintf(r.progress, "No notes stored (0 notes)\n")
	} else {
		fmt.Fprintf(r.progress, "Rebuilding index from %d notes (batch size: %d)\n",
			len(notes), r.config.BatchSize)
	}

	indexed, err := r.indexer.ReindexAll(ctx, notes)
	if err != nil {
		return Stats{}, fmt.Errorf("rebuild index: %w", err)
	}

	stats := Stats{
		Scanned: len(notes),
		Indexed: indexed,
		Elapsed: tracker.Elapsed(),
	}

	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d of %d notes in %v\n",
		stats.Indexed, stats.Scanned, stats.Elapsed.Round(time.Millisecond))

	return stats, nil
}

// RunIfNeeded runs a rebuild only when the indexer reports one is needed,
// such as after discarding an unusable snapshot. It returns zero Stats and
// a nil error when no rebuild was necessary.
func (r *Reindexer) RunIfNeeded(ctx context.Context) (Stats, error) {
	if !r.indexer.NeedsReindex() {
		return Stats{}, nil
	}

	return r.Run(ctx)
}
