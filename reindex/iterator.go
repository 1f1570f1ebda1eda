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

	"github.com/poiesic/recall/storage"
)

// DefaultBatchSize is the number of records handed to the callback per batch.
const DefaultBatchSize = 100

// RecordIterator walks one collection of a store in fixed-size batches.
// The scan happens once, inside ForEach.
type RecordIterator struct {
	store      storage.Store
	collection string
	batchSize  int
}

// NewRecordIterator creates an iterator over the named collection.
// A batchSize of zero or less falls back to DefaultBatchSize.
func NewRecordIterator(store storage.Store, collection string, batchSize int) *RecordIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &RecordIterator{
		store:      store,
		collection: collection,
		batchSize:  batchSize,
	}
}

// ForEach calls fn for each batch of records in the collection. Iteration
// stops at the first callback error or when ctx is done; the callback is
// never invoked for an empty collection.
func (it *RecordIterator) ForEach(ctx context.Context, fn func(batch []storage.KeyRecord) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := it.store.Scan(ctx, it.collection, nil)
	if err != nil {
		return err
	}

	for start := 0; start < len(records); start += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+it.batchSize, len(records))
		if err := fn(records[start:end]); err != nil {
			return err
		}
	}

	return nil
}
