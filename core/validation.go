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


package core

import "fmt"

// ValidateNote validates a Note according to domain rules.
//
// Validation rules:
//   - ID must not be empty (it is the caller's stable handle)
//   - Text must not be empty
//
// NOT validated:
//   - Timestamp (opaque to the subsystem, any value is carried through)
//   - Tags, URL, Metadata (optional; metadata shape is handled at flatten
//     time, where unsupported values are dropped)
func ValidateNote(note *Note) error {
	if note == nil {
		return fmt.Errorf("%w: note is nil", ErrInvalidNote)
	}

	if note.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrEmptyID)
	}

	if note.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNote, ErrEmptyText)
	}

	return nil
}
