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


package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownCollection indicates an operation on a collection that was
	// not declared when the store was opened.
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrSchemaViolation indicates a record that does not conform to its
	// collection's declared schema.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrMigrationMissing indicates that the registered migrations cannot
	// bridge a collection from its stored version to the declared one.
	// Opening a store with this error must be treated as fatal.
	ErrMigrationMissing = errors.New("migration missing")

	// ErrVersionRegression indicates stored data newer than the declared
	// collection version, e.g. after a binary downgrade.
	ErrVersionRegression = errors.New("stored schema version is newer than declared")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
