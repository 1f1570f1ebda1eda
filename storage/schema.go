package storage

import (
	"fmt"
	"strings"

	"github.com/poiesic/recall/metadata"
)

// FieldSpec declares one named field of a collection.
type FieldSpec struct {
	// Kind is the value kind the field must hold when present.
	Kind metadata.Kind

	// Required rejects records that omit the field.
	Required bool
}

// CollectionSpec declares a collection's name, schema version and fields.
// Version counts applied schema changes: stored data starts at version 0 and
// is migrated forward step by step until it matches the declared version,
// so the registered chain must always reach back to 0.
type CollectionSpec struct {
	Name    string
	Version uint32
	Fields  map[string]FieldSpec

	// OpenPrefix, when non-empty, exempts keys carrying the prefix from the
	// field list. Such fields may hold any scalar value. Used for flattened
	// note metadata, whose keys are user-defined.
	OpenPrefix string
}

// Validate checks a record against the spec. It reports the first problem
// found; the record is not modified.
func (s CollectionSpec) Validate(record Record) error {
	for name, field := range s.Fields {
		value, ok := record[name]
		if !ok {
			if field.Required {
				return fmt.Errorf("%w: collection %q requires field %q", ErrSchemaViolation, s.Name, name)
			}
			continue
		}
		if value.Kind != field.Kind {
			return fmt.Errorf("%w: collection %q field %q holds %v, want %v",
				ErrSchemaViolation, s.Name, name, value.Kind, field.Kind)
		}
	}

	for name, value := range record {
		if _, ok := s.Fields[name]; ok {
			continue
		}
		if s.OpenPrefix != "" && strings.HasPrefix(name, s.OpenPrefix) {
			if !value.IsScalar() {
				return fmt.Errorf("%w: collection %q field %q must be scalar",
					ErrSchemaViolation, s.Name, name)
			}
			continue
		}
		return fmt.Errorf("%w: collection %q has no field %q", ErrSchemaViolation, s.Name, name)
	}

	return nil
}
