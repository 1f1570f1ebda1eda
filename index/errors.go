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


package index

import "errors"

var (
	// ErrInvalidDocument indicates a document failed structural validation,
	// e.g. an empty ID.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrDimensionMismatch indicates a non-empty embedding whose length
	// disagrees with the index's declared dimensionality. Embeddings are
	// rejected, never truncated or padded.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidDimension indicates an index was constructed with a
	// non-positive dimensionality.
	ErrInvalidDimension = errors.New("dimension must be positive")

	// ErrSnapshotCorrupt indicates snapshot bytes that cannot be read:
	// truncated data, a checksum mismatch, or an undecodable payload.
	ErrSnapshotCorrupt = errors.New("snapshot corrupt")

	// ErrSnapshotIncompatible indicates a readable snapshot whose format
	// version or dimensionality does not match what the index expects.
	ErrSnapshotIncompatible = errors.New("snapshot incompatible")
)
