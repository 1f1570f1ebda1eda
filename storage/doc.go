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


// Package storage provides the durable storage abstraction for recall.
//
// This package defines the Store interface that decouples storage
// implementation from business logic. It allows for different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Collections, Schemas and Versions
//
// A Store holds named collections of records. Each collection is declared
// with a CollectionSpec: its field schema and a schema version. Every write
// is validated against the schema, so records read back are always in the
// declared shape.
//
// The stored version counts schema changes applied to the data on disk.
// When a store is opened with a declared version ahead of the stored one,
// the registered Migrations are run step by step to bring the data forward.
// The full migration chain is resolved before any step runs: a gap anywhere
// in the chain fails the open with ErrMigrationMissing rather than leaving
// the data partway between versions.
//
// Each migration step is committed before its version advance, and the
// advance is committed in its own transaction. A crash between the two
// re-runs the step on the next open, which is why migrations must be
// idempotent.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	store, err := badger.Open(ctx, path, specs, migrations)  // returns storage.Store interface
//
// This design decision prioritizes:
//   - Abstraction: Prevents accidental coupling to BadgerDB specifics
//   - Swappability: Easy to add alternative backends
//   - Testing: Consumers can use mock implementations without modification
//
// # Usage
//
// Open a store with its collections declared:
//
//	migrations := storage.NewMigrations()
//	store, err := badger.Open(ctx, "/path/to/db", []storage.CollectionSpec{storage.NotesSpec()}, migrations)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	notes := storage.NewNotesStore(store)
//
// Use in tests with in-memory storage:
//
//	store, err := badger.OpenMemory(ctx, []storage.CollectionSpec{storage.NotesSpec()}, migrations)
//
// # Thread Safety
//
// All Store implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All Store methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
