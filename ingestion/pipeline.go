package ingestion

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/jobqueue"
	"github.com/poiesic/recall/storage"
)

// DocumentIndexer is the slice of the indexer the pipeline drives: queued
// document upserts and removals, acknowledged through tickets.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, note *core.Note) (*jobqueue.Ticket, error)
	RemoveDocument(ctx context.Context, id string) (*jobqueue.Ticket, error)
}

// Pipeline orchestrates note ingestion: durable write first, then async
// indexing. The note store is the source of truth; indexing failures are
// logged and repaired by a later re-index, they never fail ingestion.
type Pipeline struct {
	notes   *storage.NotesStore
	indexer DocumentIndexer
	pool    *ants.Pool
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for async index submission.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(notes *storage.NotesStore, indexer DocumentIndexer, opts ...Option) (*Pipeline, error) {
	if notes == nil {
		return nil, ErrNotesStoreRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		notes:   notes,
		indexer: indexer,
		pool:    pool,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.pool.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest validates and durably writes each note, then submits async indexing
// work for it. A storage failure stops the batch and is returned; notes
// written before the failure stay written. Indexing failures are logged,
// never returned: the note is already durable and a re-index will pick it
// up.
func (p *Pipeline) Ingest(ctx context.Context, notes ...*core.Note) error {
	for _, note := range notes {
		if err := p.notes.Put(ctx, note); err != nil {
			return err
		}
		p.submit(note.ID, func() *jobqueue.Ticket {
			ticket, err := p.indexer.IndexDocument(context.Background(), note)
			if err != nil {
				p.logger.Error("error submitting note for indexing", "id", note.ID, "err", err)
				return nil
			}
			return ticket
		})
	}
	return nil
}

// Remove durably deletes the note, then submits async index removal.
// Returns storage.ErrNotFound if the note doesn't exist.
func (p *Pipeline) Remove(ctx context.Context, id string) error {
	if err := p.notes.Delete(ctx, id); err != nil {
		return err
	}
	p.submit(id, func() *jobqueue.Ticket {
		ticket, err := p.indexer.RemoveDocument(context.Background(), id)
		if err != nil {
			p.logger.Error("error submitting index removal", "id", id, "err", err)
			return nil
		}
		return ticket
	})
	return nil
}

// Flush waits for all submitted async indexing work to settle.
func (p *Pipeline) Flush() {
	p.wg.Wait()
}

// Close flushes pending work and releases the worker pool. The pipeline
// must not be used afterwards.
func (p *Pipeline) Close() error {
	p.wg.Wait()
	p.pool.Release()
	return nil
}

// submit hands one enqueue-and-await task to the pool. Pool exhaustion or
// shutdown degrades to logging; the durable write has already happened.
func (p *Pipeline) submit(id string, enqueue func() *jobqueue.Ticket) {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		ticket := enqueue()
		if ticket == nil {
			return
		}
		if err := ticket.Wait(context.Background()); err != nil {
			p.logger.Error("error indexing note", "id", id, "err", err)
		}
	})
	if err != nil {
		p.wg.Done()
		p.logger.Error("error submitting async indexing work", "id", id, "err", err)
	}
}
