package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/index"
	"github.com/poiesic/recall/jobqueue"
	"github.com/poiesic/recall/metadata"
	"github.com/poiesic/recall/storage"
)

// Embedding batches during a full re-index.
const (
	reindexBatchSize  = 100
	reindexMaxRetries = 3
	reindexRetryDelay = 1 * time.Second
)

// Service owns the hybrid index, the job queue that serializes access to it,
// the embedder and snapshot persistence. Every index mutation and every
// embed call runs inside a queued job, so the queue's single drain goroutine
// is the only goroutine that ever touches either.
type Service struct {
	queue    *jobqueue.Queue
	index    *index.Hybrid
	store    storage.Store
	embedder ai.Embedder
	logger   *slog.Logger
	dim      int

	retryAttempts int
	retryDelay    time.Duration

	needsReindex atomic.Bool
}

// SearchRequest describes one search call. The service computes the query
// embedding itself; callers supply only the text.
type SearchRequest struct {
	Query   string
	Limit   int
	Filters map[string]metadata.Value // AND-combined exact matches
}

// Stats is a point-in-time view of the service.
type Stats struct {
	Queue        jobqueue.Stats
	Documents    int
	Dimension    int
	NeedsReindex bool
}

// Option configures a Service.
type Option func(*Service) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRetry sets the retry policy for batch embedding during a re-index.
// Defaults are 3 attempts with a 1s base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Service) error {
		if maxAttempts <= 0 {
			return ai.ErrInvalidMaxAttempts
		}
		s.retryAttempts = maxAttempts
		s.retryDelay = baseDelay
		return nil
	}
}

// Open restores the index from its persisted snapshot and starts the job
// queue. An absent snapshot starts empty; a corrupt or incompatible one
// starts empty with the re-index flag raised. The store must already be
// open, with the snapshot collection declared and migrated.
//
// embedder may be nil: the service then indexes and searches keyword-only.
func Open(ctx context.Context, store storage.Store, embedder ai.Embedder, dim int, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Service{
		store:         store,
		embedder:      embedder,
		logger:        slog.Default(),
		dim:           dim,
		retryAttempts: reindexMaxRetries,
		retryDelay:    reindexRetryDelay,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	idx, err := s.restore(ctx)
	if err != nil {
		return nil, err
	}
	s.index = idx

	queue, err := jobqueue.New(jobqueue.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.queue = queue

	s.logger.Debug("indexer open", "documents", idx.Count(), "dimension", dim, "needsReindex", s.needsReindex.Load())
	return s, nil
}

// IndexDocument enqueues a job that embeds the note, upserts it into the
// index and persists a fresh snapshot. The returned ticket settles when the
// document is searchable and durable. An unavailable embedder degrades the
// document to keyword-only; a wrong-length embedding fails the job.
func (s *Service) IndexDocument(ctx context.Context, note *core.Note) (*jobqueue.Ticket, error) {
	if err := core.ValidateNote(note); err != nil {
		return nil, err
	}

	doc := documentFromNote(note)
	text := embeddingText(note)

	return s.queue.Enqueue(func(jobCtx context.Context) error {
		embedding, err := s.embedText(jobCtx, text)
		if err != nil {
			return err
		}
		doc.Embedding = embedding
		if err := s.index.Upsert(doc); err != nil {
			return err
		}
		return s.persistSnapshot(jobCtx)
	})
}

// RemoveDocument enqueues a job removing the document by ID. Removing an
// absent ID succeeds without touching the snapshot.
func (s *Service) RemoveDocument(ctx context.Context, id string) (*jobqueue.Ticket, error) {
	if id == "" {
		return nil, core.ErrEmptyID
	}

	return s.queue.Enqueue(func(jobCtx context.Context) error {
		if !s.index.Remove(id) {
			return nil
		}
		return s.persistSnapshot(jobCtx)
	})
}

// Search embeds the query and ranks documents against it. Both steps run in
// one queued job, so results observe every previously acknowledged write.
// An unavailable embedder degrades the search to keyword-only ranking.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]index.Match, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor is Search with observation hooks. The monitor's methods
// are called from the queue's drain goroutine.
func (s *Service) SearchWithMonitor(ctx context.Context, req SearchRequest, monitor index.Monitor) ([]index.Match, error) {
	var matches []index.Match
	ticket, err := s.queue.Enqueue(func(jobCtx context.Context) error {
		embedding, err := s.embedText(jobCtx, req.Query)
		if err != nil {
			return err
		}
		matches = s.index.SearchWithMonitor(index.Query{
			Text:      req.Query,
			Embedding: embedding,
			Limit:     req.Limit,
			Filters:   req.Filters,
		}, monitor)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ticket.Wait(ctx); err != nil {
		return nil, err
	}
	return matches, nil
}

// ReindexAll rebuilds the index from the given notes in one queued job:
// clear, batch-embed, upsert everything, snapshot once. A batch whose
// embeddings are unavailable is indexed keyword-only; the rebuild itself
// still succeeds. A successful rebuild clears the re-index flag and returns
// the number of documents indexed.
func (s *Service) ReindexAll(ctx context.Context, notes []*core.Note) (int, error) {
	count := 0
	ticket, err := s.queue.Enqueue(func(jobCtx context.Context) error {
		s.index.Clear()

		for start := 0; start < len(notes); start += reindexBatchSize {
			batch := notes[start:min(start+reindexBatchSize, len(notes))]
			embeddings, err := s.embedBatch(jobCtx, batch)
			if err != nil {
				return err
			}
			for i, note := range batch {
				doc := documentFromNote(note)
				if embeddings != nil {
					doc.Embedding = embeddings[i]
				}
				if err := s.index.Upsert(doc); err != nil {
					return fmt.Errorf("note %s: %w", note.ID, err)
				}
				count++
			}
		}

		if err := s.persistSnapshot(jobCtx); err != nil {
			return err
		}
		s.needsReindex.Store(false)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := ticket.Wait(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

// NeedsReindex reports whether the startup restore discarded the snapshot.
// A successful ReindexAll clears it.
func (s *Service) NeedsReindex() bool {
	return s.needsReindex.Load()
}

// Stats returns queue counters alongside index size and dimensionality.
func (s *Service) Stats() Stats {
	return Stats{
		Queue:        s.queue.Stats(),
		Documents:    s.index.Count(),
		Dimension:    s.dim,
		NeedsReindex: s.needsReindex.Load(),
	}
}

// Close stops intake and drains every already-enqueued job. The store stays
// open; it belongs to the caller.
func (s *Service) Close() error {
	return s.queue.Close()
}

// embedText embeds one text, degrading to no embedding when the embedder is
// absent or unavailable. Other errors are returned as-is and fail the job.
func (s *Service) embedText(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}
	vec, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			s.logger.Warn("embedder unavailable, degrading to keyword-only", "err", err)
			return nil, nil
		}
		return nil, err
	}
	return ai.NormalizeVector(vec), nil
}

// embedBatch embeds one re-index batch with retry. Unavailability after all
// retries degrades the whole batch to keyword-only (nil return).
func (s *Service) embedBatch(ctx context.Context, notes []*core.Note) ([][]float32, error) {
	if s.embedder == nil {
		return nil, nil
	}

	texts := make([]string, len(notes))
	for i, note := range notes {
		texts[i] = embeddingText(note)
	}

	var embeddings [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = s.embedder.EmbedTexts(ctx, texts)
		return err
	}, s.retryAttempts, s.retryDelay)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			s.logger.Warn("batch embedding unavailable, indexing keyword-only", "notes", len(notes), "err", err)
			return nil, nil
		}
		return nil, fmt.Errorf("embed batch of %d: %w", len(notes), err)
	}
	if len(embeddings) != len(notes) {
		s.logger.Warn("embedding count mismatch, indexing batch keyword-only", "want", len(notes), "got", len(embeddings))
		return nil, nil
	}

	for i := range embeddings {
		embeddings[i] = ai.NormalizeVector(embeddings[i])
	}
	return embeddings, nil
}

// documentFromNote copies the note's searchable fields into an index
// document and flattens its metadata. The embedding is filled in later,
// inside the job.
func documentFromNote(note *core.Note) index.Document {
	return index.Document{
		ID:            note.ID,
		Text:          note.Text,
		SecondaryText: note.SecondaryText,
		Tags:          note.Tags,
		URL:           note.URL,
		Timestamp:     note.Timestamp,
		Meta:          metadata.Flatten(note.Metadata),
	}
}

// embeddingText is the text the embedder sees for a note.
func embeddingText(note *core.Note) string {
	if note.SecondaryText == "" {
		return note.Text
	}
	return note.Text + "\n\n" + note.SecondaryText
}
