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


// Package ai provides abstractions for the embedding services used in recall.
//
// This package defines the Embedder interface for turning text into vector
// embeddings. It follows the dependency inversion principle, allowing the
// core domain and business logic to depend on abstractions rather than
// concrete implementations.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// This package follows a mixed constructor pattern based on use case:
//
// Public production constructors (openai.NewEmbedder) return INTERFACE types
// to enforce abstraction and prevent accidental coupling to concrete
// implementations.
//
//	embedder, err := openai.NewEmbedder(config)  // returns ai.Embedder
//
// Test utility constructors (mock.NewMockEmbedder) return CONCRETE types to
// enable test assertions and behavior injection via the mock's public
// methods (CallCount, EmbedTextFunc, Reset, etc.).
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	count := mockEmbed.CallCount()       // test assertion
//
// # Degraded Mode
//
// An unreachable embedding backend is signalled with ErrUnavailable. The
// indexing pipeline treats that as a degrade signal: notes are still stored
// and keyword-indexed, and a later reindex backfills the missing vectors.
// Transient failures are absorbed by RetryWithBackoff before the degrade
// kicks in.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	embedder, err := openai.NewEmbedder(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cached, err := ai.NewCachedEmbedder(embedder, config.CacheSize)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	vector, err := cached.EmbedText(ctx, "Hello world")
package ai
