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

import (
	"context"
	"fmt"
)

// Migration rewrites every record of a collection in place, taking it from
// one schema version to the next. The map holds all records keyed by record
// key; migrations may modify, add or delete entries.
//
// Migrations must be idempotent: a crash between the rewrite and the version
// advance means the same step runs again on already-migrated records.
type Migration func(ctx context.Context, records map[string]Record) error

// Migrations is a registry of single-step migrations keyed by collection
// and source version. Registration happens once at startup; the registry is
// not safe for concurrent mutation.
type Migrations struct {
	steps map[string]map[uint32]Migration
}

// NewMigrations returns an empty registry.
func NewMigrations() *Migrations {
	return &Migrations{steps: make(map[string]map[uint32]Migration)}
}

// Register adds the step migrating collection data from fromVersion to
// fromVersion+1. Registering a nil migration or the same step twice is a
// programming error and panics.
func (m *Migrations) Register(collection string, fromVersion uint32, fn Migration) {
	if fn == nil {
		panic(fmt.Sprintf("storage: nil migration for %q version %d", collection, fromVersion))
	}
	byVersion, ok := m.steps[collection]
	if !ok {
		byVersion = make(map[uint32]Migration)
		m.steps[collection] = byVersion
	}
	if _, exists := byVersion[fromVersion]; exists {
		panic(fmt.Sprintf("storage: duplicate migration for %q version %d", collection, fromVersion))
	}
	byVersion[fromVersion] = fn
}

// Plan resolves the chain of steps taking a collection from one version to
// another. Any gap in the chain yields ErrMigrationMissing; callers must
// check the full plan before running any step, so that a store is never
// migrated partway into a dead end.
func (m *Migrations) Plan(collection string, from, to uint32) ([]Migration, error) {
	if from > to {
		return nil, fmt.Errorf("%w: collection %q stored %d, declared %d",
			ErrVersionRegression, collection, from, to)
	}

	plan := make([]Migration, 0, to-from)
	for v := from; v < to; v++ {
		step, ok := m.steps[collection][v]
		if !ok {
			return nil, fmt.Errorf("%w: collection %q has no step %d to %d",
				ErrMigrationMissing, collection, v, v+1)
		}
		plan = append(plan, step)
	}
	return plan, nil
}
