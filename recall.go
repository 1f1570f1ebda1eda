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


// Package recall is a note store with hybrid keyword and semantic search.
// Notes are the durable source of truth; the search index is derived from
// them, kept on a single-writer job queue, and rebuildable at any time.
package recall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/index"
	"github.com/poiesic/recall/indexer"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/jobqueue"
	"github.com/poiesic/recall/metadata"
	"github.com/poiesic/recall/reindex"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

// ErrPathRequired is returned by Open when neither WithPath nor
// WithInMemory was given.
var ErrPathRequired = errors.New("store path required")

// Service bundles the durable note store, the index service, the ingestion
// pipeline and the reindexer behind one handle.
type Service struct {
	store     storage.Store
	notes     *storage.NotesStore
	indexer   *indexer.Service
	pipeline  *ingestion.Pipeline
	reindexer *reindex.Reindexer
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	path        string
	inMemory    bool
	embedder    ai.Embedder
	embedderSet bool
	aiConfig    *ai.Config
	dimension   int
	poolSize    int
	progress    io.Writer
	logger      *slog.Logger
}

// WithPath stores data on disk at the given directory.
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithInMemory keeps all data in memory. Nothing survives Close.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithEmbedder supplies the embedder directly, bypassing the AI config and
// the embedding cache. A nil embedder runs the service keyword-only.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
		o.embedderSet = true
	}
}

// WithAIConfig overrides the default embedding backend configuration.
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithDimension overrides the embedding dimension. The default comes from
// the AI config.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithPoolSize sets the ingestion pipeline's worker pool size.
func WithPoolSize(size int) Option {
	return func(o *options) {
		o.poolSize = size
	}
}

// WithProgress sets where reindex runs write progress output
// (typically os.Stderr). The default discards it.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.progress = w
		}
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open builds a Service: store open and migrations first, then the index
// service (snapshot restore + job queue), then the ingestion pipeline.
func Open(ctx context.Context, opts ...Option) (*Service, error) {
	options := &options{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
		progress: io.Discard,
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.path == "" && !options.inMemory {
		return nil, ErrPathRequired
	}

	embedder := options.embedder
	if !options.embedderSet {
		if err := options.aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("ai config: %w", err)
		}

		inner, err := openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
		embedder = inner

		if options.aiConfig.CacheSize > 0 {
			cached, err := ai.NewCachedEmbedder(inner, options.aiConfig.CacheSize)
			if err != nil {
				return nil, err
			}
			embedder = cached
		}
	}

	dim := options.dimension
	if dim == 0 {
		dim = options.aiConfig.Dimension
	}

	reg := storage.NewMigrations()
	storage.RegisterNotesMigrations(reg)
	indexer.RegisterSnapshotMigrations(reg)
	specs := []storage.CollectionSpec{storage.NotesSpec(), indexer.SnapshotSpec()}

	var store storage.Store
	var err error
	if options.inMemory {
		store, err = badger.OpenMemory(ctx, specs, reg, badger.WithLogger(options.logger))
	} else {
		store, err = badger.Open(ctx, options.path, specs, reg, badger.WithLogger(options.logger))
	}
	if err != nil {
		return nil, err
	}

	idx, err := indexer.Open(ctx, store, embedder, dim, indexer.WithLogger(options.logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	notes := storage.NewNotesStore(store)

	pipeOpts := []ingestion.Option{ingestion.WithLogger(options.logger)}
	if options.poolSize > 0 {
		pipeOpts = append(pipeOpts, ingestion.WithPoolSize(options.poolSize))
	}
	pipeline, err := ingestion.NewPipeline(notes, idx, pipeOpts...)
	if err != nil {
		idx.Close()
		store.Close()
		return nil, err
	}

	reindexer, err := reindex.NewReindexer(store, idx, nil, options.progress)
	if err != nil {
		pipeline.Close()
		idx.Close()
		store.Close()
		return nil, err
	}

	return &Service{
		store:     store,
		notes:     notes,
		indexer:   idx,
		pipeline:  pipeline,
		reindexer: reindexer,
		logger:    options.logger,
	}, nil
}

// AddNote writes the note durably and submits it for asynchronous indexing.
func (s *Service) AddNote(ctx context.Context, note *core.Note) error {
	return s.pipeline.Ingest(ctx, note)
}

// AddNotes ingests several notes. It stops at the first note that cannot
// be written durably.
func (s *Service) AddNotes(ctx context.Context, notes ...*core.Note) error {
	return s.pipeline.Ingest(ctx, notes...)
}

// IndexNote indexes a note without writing it durably, returning the
// ticket for its queued job. Callers that own durability elsewhere use
// this; everyone else wants AddNote.
func (s *Service) IndexNote(ctx context.Context, note *core.Note) (*jobqueue.Ticket, error) {
	return s.indexer.IndexDocument(ctx, note)
}

// Search runs a hybrid keyword and semantic search over the index.
// Filters match against flattened metadata fields and built-in fields.
func (s *Service) Search(ctx context.Context, query string, limit int, filters map[string]metadata.Value) ([]index.Match, error) {
	return s.indexer.Search(ctx, indexer.SearchRequest{Query: query, Limit: limit, Filters: filters})
}

// SearchWithMonitor is Search with an instrumentation hook.
func (s *Service) SearchWithMonitor(ctx context.Context, query string, limit int, filters map[string]metadata.Value, monitor index.Monitor) ([]index.Match, error) {
	return s.indexer.SearchWithMonitor(ctx, indexer.SearchRequest{Query: query, Limit: limit, Filters: filters}, monitor)
}

// RemoveNote deletes the note durably and submits the index removal.
func (s *Service) RemoveNote(ctx context.Context, id string) error {
	return s.pipeline.Remove(ctx, id)
}

// Reindex rebuilds the index from every durably stored note.
func (s *Service) Reindex(ctx context.Context) (reindex.Stats, error) {
	return s.reindexer.Run(ctx)
}

// ReindexIfNeeded rebuilds only when an unusable snapshot was discarded
// at open. Call it after Open to repair automatically.
func (s *Service) ReindexIfNeeded(ctx context.Context) (reindex.Stats, error) {
	return s.reindexer.RunIfNeeded(ctx)
}

// ReindexNotes rebuilds the index from a caller-provided note set instead
// of the store.
func (s *Service) ReindexNotes(ctx context.Context, notes []*core.Note) (int, error) {
	return s.indexer.ReindexAll(ctx, notes)
}

// NeedsReindex reports whether the index was rebuilt empty at open and is
// waiting for a reindex run.
func (s *Service) NeedsReindex() bool {
	return s.indexer.NeedsReindex()
}

// Stats returns index and queue counters.
func (s *Service) Stats() indexer.Stats {
	return s.indexer.Stats()
}

// Notes exposes typed access to the durable notes collection.
func (s *Service) Notes() *storage.NotesStore {
	return s.notes
}

// Flush blocks until every ingested note has been handed to the index
// queue and its job observed.
func (s *Service) Flush() {
	s.pipeline.Flush()
}

// Close shuts the pipeline down, drains the index queue, and closes the
// store, in that order. Every component is closed even when one fails.
func (s *Service) Close() error {
	var firstErr error

	if err := s.pipeline.Close(); err != nil {
		s.logger.Error("error closing ingestion pipeline", "err", err)
		firstErr = err
	}
	if err := s.indexer.Close(); err != nil {
		s.logger.Error("error closing index service", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
