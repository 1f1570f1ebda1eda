// Package reindex rebuilds the search index from the durable notes
// collection.
//
// The index is derived data: notes are the source of truth, so any index
// that has drifted, been discarded, or was built with a different embedding
// model can be reconstructed from a single scan. A Reindexer reads the notes
// collection in batches, reports progress through a ProgressTracker, and
// hands the full note set to the index service for one atomic rebuild.
//
// RunIfNeeded ties the rebuild to snapshot recovery: when the index service
// discarded an unusable snapshot at startup it raises a flag, and
// RunIfNeeded repairs the index only in that case.
package reindex
