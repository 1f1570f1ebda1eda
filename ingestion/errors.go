package ingestion

import "errors"

var (
	// ErrNotesStoreRequired is returned when a notes store is not provided.
	ErrNotesStoreRequired = errors.New("notes store required")

	// ErrIndexerRequired is returned when an indexer is not provided.
	ErrIndexerRequired = errors.New("indexer required")
)
