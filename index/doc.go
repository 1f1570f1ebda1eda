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


// Package index provides an in-memory hybrid search index over documents.
//
// The Hybrid type combines:
//   - BM25 keyword scoring over text, annotation and tag fields
//   - Cosine similarity over fixed-dimensionality embeddings
//   - Exact-match filtering over flattened metadata fields
//
// The two rankings fuse with weighted reciprocal ranks, plus a boost for
// documents containing every query word. Snapshot and Restore convert the
// whole index to and from durable bytes, detecting corrupt and incompatible
// snapshots so callers can fall back to an empty index and re-index from
// their durable document source.
package index
