package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/metadata"
)

func TestMarshalUnmarshalRecord(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{"empty record", Record{}},
		{
			name: "note-shaped record",
			record: Record{
				"id":        metadata.String("a1b2"),
				"text":      metadata.String("some note text"),
				"tags":      metadata.Strings([]string{"go", "storage"}),
				"timestamp": metadata.Int(1700000000),
			},
		},
		{
			name: "record with flattened metadata",
			record: Record{
				"id":          metadata.String("a1b2"),
				"text":        metadata.String("body"),
				"timestamp":   metadata.Int(0),
				"meta.source": metadata.String("web"),
				"meta.rank":   metadata.Float(0.75),
				"meta.read":   metadata.Bool(true),
			},
		},
		{
			name: "record with blob and unicode",
			record: Record{
				"id":       metadata.String("пример"),
				"snapshot": metadata.Bytes([]byte{0x00, 0xFF, 0x10}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Marshal
			data := MarshalRecord(tt.record)
			require.NotNil(t, data)

			// Unmarshal
			decoded, err := UnmarshalRecord(data)
			require.NoError(t, err)

			// Verify fields
			require.Len(t, decoded, len(tt.record))
			for key, want := range tt.record {
				assert.True(t, decoded[key].Equal(want), "field %q", key)
			}
		})
	}
}

func TestMarshalRecord_Deterministic(t *testing.T) {
	record := Record{
		"id":          metadata.String("a1b2"),
		"text":        metadata.String("body"),
		"timestamp":   metadata.Int(12345),
		"meta.source": metadata.String("web"),
		"meta.year":   metadata.Int(2025),
	}

	first := MarshalRecord(record)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, MarshalRecord(record))
	}
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{2, 3, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRecord(tt.data)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSerializationFailed)
		})
	}
}

func TestMarshalUnmarshalVersion(t *testing.T) {
	for _, version := range []uint32{0, 1, 3, 4294967295} {
		data := MarshalVersion(version)
		require.NotEmpty(t, data)

		decoded, err := UnmarshalVersion(data)
		require.NoError(t, err)
		assert.Equal(t, version, decoded)
	}
}

func TestUnmarshalVersion_Invalid(t *testing.T) {
	_, err := UnmarshalVersion(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncatedData)
}
