package metadata

import (
	"reflect"
	"testing"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want map[string]Value
	}{
		{
			name: "scalars are kept and prefixed",
			meta: map[string]any{
				"contentType": "article",
				"wordCount":   842,
				"confidence":  0.93,
				"pinned":      true,
			},
			want: map[string]Value{
				"meta.contentType": String("article"),
				"meta.wordCount":   Int(842),
				"meta.confidence":  Float(0.93),
				"meta.pinned":      Bool(true),
			},
		},
		{
			name: "nil values are dropped",
			meta: map[string]any{
				"kept":    "yes",
				"dropped": nil,
			},
			want: map[string]Value{
				"meta.kept": String("yes"),
			},
		},
		{
			name: "nested objects are dropped, not recursed",
			meta: map[string]any{
				"title": "note",
				"extra": map[string]any{"inner": "value"},
			},
			want: map[string]Value{
				"meta.title": String("note"),
			},
		},
		{
			name: "lists are dropped",
			meta: map[string]any{
				"labels": []any{"a", "b"},
				"score":  7,
			},
			want: map[string]Value{
				"meta.score": Int(7),
			},
		},
		{
			name: "already prefixed keys are not prefixed again",
			meta: map[string]any{
				"meta.source": "import",
			},
			want: map[string]Value{
				"meta.source": String("import"),
			},
		},
		{
			name: "empty keys are dropped",
			meta: map[string]any{
				"": "ignored",
			},
			want: map[string]Value{},
		},
		{
			name: "nil input yields empty output",
			meta: nil,
			want: map[string]Value{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Flatten(tt.meta)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Flatten() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatten_Idempotent(t *testing.T) {
	meta := map[string]any{
		"contentType": "article",
		"wordCount":   842,
		"nested":      map[string]any{"x": 1},
	}

	once := Flatten(meta)
	twice := Flatten(meta)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Flatten() is not pure: %v vs %v", once, twice)
	}

	// Feeding flattened output back in must not re-prefix keys.
	refed := make(map[string]any, len(once))
	for k, v := range once {
		refed[k] = v
	}
	again := Flatten(refed)
	if !reflect.DeepEqual(once, again) {
		t.Errorf("Flatten(Flatten(x)) = %v, want %v", again, once)
	}
}
