package core

import (
	"encoding/hex"

	"github.com/go-crypt/x/blake2b"
)

// IDFromContent generates a deterministic note ID from text content using
// BLAKE2b hashing. Callers that need stable IDs for deduplication can use
// this; the indexing subsystem itself never generates IDs.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Note is a caller-supplied document: the unit of capture, storage and
// indexing. The ID is opaque and owned by the caller.
type Note struct {
	ID            string
	Text          string         // Primary searchable content
	SecondaryText string         // User annotation or excerpt, also searchable
	Tags          []string       // Ordered, duplicates allowed
	URL           string         // Carried through for display, never interpreted
	Timestamp     int64          // Unix milliseconds; used only for result tie-breaks
	Metadata      map[string]any // JSON-shaped; flattened to scalars at index time
}
