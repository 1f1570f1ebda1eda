package metadata

import "strings"

// KeyPrefix is the reserved prefix carried by every flattened metadata key.
// Index filters address flattened fields by their prefixed name, e.g.
// "meta.contentType".
const KeyPrefix = "meta."

// Flatten converts an arbitrarily shaped metadata object into flat,
// dot-prefixed scalar fields.
//
// Rules:
//   - nil values are dropped
//   - top-level scalars (string, integer, float, bool) are kept under
//     KeyPrefix + key
//   - non-scalar values (maps, lists, anything else) are dropped, not
//     recursed into
//   - keys already carrying KeyPrefix are not prefixed again, so running
//     the output back through Flatten is a no-op
//
// Flatten is pure: identical input yields identical output.
func Flatten(meta map[string]any) map[string]Value {
	out := make(map[string]Value, len(meta))
	for key, raw := range meta {
		if raw == nil || key == "" {
			continue
		}
		v, ok := FromAny(raw)
		if !ok || !v.IsScalar() {
			continue
		}
		if !strings.HasPrefix(key, KeyPrefix) {
			key = KeyPrefix + key
		}
		out[key] = v
	}
	return out
}
