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


package jobqueue

import "errors"

var (
	// ErrClosed indicates the queue no longer accepts jobs.
	ErrClosed = errors.New("queue is closed")

	// ErrNilJob indicates Enqueue was called with a nil job.
	ErrNilJob = errors.New("job cannot be nil")

	// ErrJobPanicked indicates a job panicked while running. The panic is
	// contained to that job's ticket; the queue keeps draining.
	ErrJobPanicked = errors.New("job panicked")
)
