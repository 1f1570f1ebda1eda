package index

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/poiesic/recall/metadata"
)

// Document is one entry in the hybrid index: the searchable note fields plus
// an embedding and the flattened metadata produced at index time.
type Document struct {
	ID            string
	Text          string
	SecondaryText string
	Tags          []string
	URL           string
	Timestamp     int64
	Embedding     []float32                 // Empty in degraded keyword-only mode
	Meta          map[string]metadata.Value // Flattened, "meta."-prefixed scalars
}

// keywordText is the text the keyword index sees for this document.
func (d *Document) keywordText() string {
	parts := make([]string, 0, 3)
	if d.Text != "" {
		parts = append(parts, d.Text)
	}
	if d.SecondaryText != "" {
		parts = append(parts, d.SecondaryText)
	}
	if len(d.Tags) > 0 {
		parts = append(parts, strings.Join(d.Tags, " "))
	}
	return strings.Join(parts, " ")
}

// Option configures a Hybrid index.
type Option func(*Hybrid) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hybrid) error {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
		return nil
	}
}

// Hybrid is an in-memory index combining keyword and vector search over
// documents. Every document with a non-empty embedding carries exactly dim
// elements; documents without embeddings participate in keyword ranking
// only.
//
// Hybrid is safe for concurrent use, though the intended deployment routes
// all mutations through a single writer.
type Hybrid struct {
	dim    int
	logger *slog.Logger

	mu       sync.RWMutex
	docs     map[string]*Document
	keywords *keywordIndex
}

// NewHybrid creates an empty index with a fixed embedding dimensionality.
func NewHybrid(dim int, opts ...Option) (*Hybrid, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}

	h := &Hybrid{
		dim:      dim,
		logger:   slog.Default(),
		docs:     make(map[string]*Document),
		keywords: newKeywordIndex(),
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Dimension returns the index's declared embedding dimensionality.
func (h *Hybrid) Dimension() int {
	return h.dim
}

// Upsert inserts a document or replaces the existing one with the same ID.
// A non-empty embedding must carry exactly Dimension() elements.
func (h *Hybrid) Upsert(doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}
	if len(doc.Embedding) != 0 && len(doc.Embedding) != h.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(doc.Embedding), h.dim)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.docs[doc.ID]; ok {
		h.keywords.remove(old.ID, old.keywordText())
	}
	stored := doc
	h.docs[doc.ID] = &stored
	h.keywords.add(stored.ID, stored.keywordText())

	return nil
}

// Remove deletes the document with the given ID, reporting whether it was
// present.
func (h *Hybrid) Remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	doc, ok := h.docs[id]
	if !ok {
		return false
	}
	h.keywords.remove(doc.ID, doc.keywordText())
	delete(h.docs, id)
	return true
}

// Count returns the number of indexed documents.
func (h *Hybrid) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.docs)
}

// Clear removes every document.
func (h *Hybrid) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.docs = make(map[string]*Document)
	h.keywords.clear()
}

// Get returns a copy of the document with the given ID.
func (h *Hybrid) Get(id string) (Document, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	doc, ok := h.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}
