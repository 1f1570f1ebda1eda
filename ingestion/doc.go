// Package ingestion provides pipeline orchestration for adding notes.
//
// The Pipeline type manages the ingestion workflow for notes, including:
//   - Writing notes durably to the store (the source of truth)
//   - Submitting async indexing work to a worker pool
//
// The worker pool only parallelizes the hand-off to the index queue; the
// queue itself serializes all index mutations. Errors during async indexing
// are logged but do not fail the ingestion operation: a durable note that
// missed the index is recovered by the next re-index.
package ingestion
