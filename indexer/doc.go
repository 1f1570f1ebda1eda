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


// Package indexer orchestrates the hybrid index behind a strict-FIFO job
// queue.
//
// The queue is the serialization point of the whole system: every index
// mutation, every embed call and every search runs inside a queued job, so
// one goroutine owns the index and the embedder. Acknowledged writes are
// durable (the snapshot is persisted synchronously inside the mutating job)
// and searches observe every previously acknowledged write.
//
// # Degraded Mode
//
// The embedder is optional. When it is nil, or when it reports
// ai.ErrUnavailable, documents are indexed keyword-only and queries rank by
// keywords alone. Indexing never fails because embeddings are missing; a
// later re-index backfills the vectors.
//
// # Snapshot Recovery
//
// Open restores the index from its persisted snapshot. A snapshot that is
// missing starts an empty index. A snapshot that is corrupt or was written
// by an incompatible format version is discarded: the index starts empty
// and NeedsReindex reports true until a ReindexAll rebuilds it from the
// durable note set. Notes are the source of truth; the snapshot is only a
// cache of derived state.
//
// Usage:
//
//	svc, err := indexer.Open(ctx, store, embedder, cfg.Dimension)
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	ticket, err := svc.IndexDocument(ctx, note)
//	if err != nil {
//	    return err
//	}
//	if err := ticket.Wait(ctx); err != nil {
//	    return err
//	}
//
//	matches, err := svc.Search(ctx, indexer.SearchRequest{Query: "dogs", Limit: 10})
package indexer
