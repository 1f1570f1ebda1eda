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


// Package jobqueue provides a sequential job queue with per-job futures.
//
// Embedding computation is expensive and usually backed by a single shared
// model instance, so correctness requires strict serialization rather than a
// bounded worker pool: jobs run one at a time, in arrival order, and one bad
// job never stops the ones behind it.
package jobqueue
