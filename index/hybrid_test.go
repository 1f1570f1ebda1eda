package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/metadata"
)

func TestNewHybrid_InvalidDimension(t *testing.T) {
	for _, dim := range []int{0, -1} {
		_, err := NewHybrid(dim)
		assert.ErrorIs(t, err, ErrInvalidDimension)
	}
}

func TestHybrid_Upsert(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	doc := Document{
		ID:        "n1",
		Text:      "cats and dogs",
		Embedding: []float32{1, 0, 0, 0},
		Timestamp: 100,
	}
	require.NoError(t, h.Upsert(doc))
	assert.Equal(t, 1, h.Count())

	got, ok := h.Get("n1")
	require.True(t, ok)
	assert.Equal(t, "cats and dogs", got.Text)
}

func TestHybrid_Upsert_EmptyID(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	err = h.Upsert(Document{Text: "no id"})
	assert.ErrorIs(t, err, ErrInvalidDocument)
	assert.Equal(t, 0, h.Count())
}

func TestHybrid_Upsert_DimensionMismatch(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	err = h.Upsert(Document{ID: "n1", Text: "short vector", Embedding: []float32{1, 2}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Contains(t, err.Error(), "got 2, want 4")
	assert.Equal(t, 0, h.Count(), "rejected document must not be indexed")
}

func TestHybrid_Upsert_EmptyEmbeddingAllowed(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	// Keyword-only documents are legal: they exist whenever the embedding
	// capability was unavailable at index time.
	require.NoError(t, h.Upsert(Document{ID: "n1", Text: "plain keyword note"}))
	assert.Equal(t, 1, h.Count())

	results := h.Search(Query{Text: "keyword", Limit: 10})
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].ID)
}

func TestHybrid_Upsert_Idempotent(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	doc := Document{ID: "n1", Text: "cats and dogs", Embedding: []float32{1, 0, 0, 0}}
	require.NoError(t, h.Upsert(doc))
	require.NoError(t, h.Upsert(doc))

	assert.Equal(t, 1, h.Count())

	// Postings must not accumulate: a repeated upsert leaves scoring alone.
	first := h.Search(Query{Text: "dogs", Limit: 10})
	require.NoError(t, h.Upsert(doc))
	second := h.Search(Query{Text: "dogs", Limit: 10})
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Score, second[0].Score)
}

func TestHybrid_Upsert_ReplacesKeywords(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	require.NoError(t, h.Upsert(Document{ID: "n1", Text: "ancient history"}))
	require.NoError(t, h.Upsert(Document{ID: "n1", Text: "modern physics"}))

	assert.Equal(t, 1, h.Count())
	assert.Empty(t, h.Search(Query{Text: "ancient", Limit: 10}),
		"replaced document still matches its old text")
	assert.Len(t, h.Search(Query{Text: "physics", Limit: 10}), 1)
}

func TestHybrid_Remove(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	require.NoError(t, h.Upsert(Document{ID: "n1", Text: "cats and dogs"}))

	assert.True(t, h.Remove("n1"))
	assert.False(t, h.Remove("n1"), "second remove should report absence")
	assert.Equal(t, 0, h.Count())
	assert.Empty(t, h.Search(Query{Text: "dogs", Limit: 10}))
}

func TestHybrid_Clear(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	require.NoError(t, h.Upsert(Document{ID: "n1", Text: "one"}))
	require.NoError(t, h.Upsert(Document{ID: "n2", Text: "two"}))

	h.Clear()
	assert.Equal(t, 0, h.Count())
	assert.Empty(t, h.Search(Query{Text: "one", Limit: 10}))
}

func TestHybrid_Get_Missing(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	_, ok := h.Get("ghost")
	assert.False(t, ok)
}

func TestHybrid_TagsAreSearchable(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	require.NoError(t, h.Upsert(Document{
		ID:   "n1",
		Text: "some note",
		Tags: []string{"golang", "indexing"},
	}))

	results := h.Search(Query{Text: "golang", Limit: 10})
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].ID)
}

func TestHybrid_MetadataCarriedThrough(t *testing.T) {
	h, err := NewHybrid(4)
	require.NoError(t, err)

	require.NoError(t, h.Upsert(Document{
		ID:   "n1",
		Text: "some note",
		Meta: map[string]metadata.Value{"meta.kind": metadata.String("article")},
	}))

	got, ok := h.Get("n1")
	require.True(t, ok)
	assert.True(t, got.Meta["meta.kind"].Equal(metadata.String("article")))
}
