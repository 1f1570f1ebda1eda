package recall

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/index"
	"github.com/poiesic/recall/indexer"
	"github.com/poiesic/recall/metadata"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

const testDim = 8

func testOptions(extra ...Option) []Option {
	opts := []Option{
		WithInMemory(),
		WithEmbedder(mock.NewMockEmbedderWithDimension(testDim)),
		WithDimension(testDim),
	}
	return append(opts, extra...)
}

func openTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()

	svc, err := Open(context.Background(), testOptions(opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func testNote(id, text string) *core.Note {
	return &core.Note{
		ID:        id,
		Text:      text,
		Timestamp: 1700000000000,
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background())
	assert.ErrorIs(t, err, ErrPathRequired)
}

func TestService_AddNoteAndSearch(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	sourdough := testNote("n1", "sourdough starter feeding schedule")
	sourdough.Metadata = map[string]any{"kind": "recipe"}
	sourdough.Tags = []string{"baking"}

	require.NoError(t, svc.AddNote(ctx, sourdough))
	require.NoError(t, svc.AddNotes(ctx,
		testNote("n2", "quarterly budget review"),
		testNote("n3", "ferry timetable for the coast route"),
	))
	svc.Flush()

	matches, err := svc.Search(ctx, "sourdough starter", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "n1", matches[0].ID)

	// Durable alongside indexed.
	note, err := svc.Notes().Get(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, "quarterly budget review", note.Text)
}

func TestService_Search_Filters(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	recipe := testNote("r1", "weeknight pasta notes")
	recipe.Metadata = map[string]any{"kind": "recipe"}
	journal := testNote("j1", "pasta place near the office")
	journal.Metadata = map[string]any{"kind": "journal"}

	require.NoError(t, svc.AddNotes(ctx, recipe, journal))
	svc.Flush()

	filters := map[string]metadata.Value{"meta.kind": metadata.String("journal")}
	matches, err := svc.Search(ctx, "pasta", 5, filters)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "j1", matches[0].ID)
}

func TestService_AddNote_Invalid(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	err := svc.AddNote(ctx, &core.Note{Text: "no id", Timestamp: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmptyID)

	all, err := svc.Notes().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "nothing is written for an invalid note")
}

func TestService_RemoveNote(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddNote(ctx, testNote("n1", "disposable thought")))
	svc.Flush()

	require.NoError(t, svc.RemoveNote(ctx, "n1"))
	svc.Flush()

	_, err := svc.Notes().Get(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	matches, err := svc.Search(ctx, "disposable thought", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestService_RemoveNote_Unknown(t *testing.T) {
	svc := openTestService(t)

	err := svc.RemoveNote(context.Background(), "never-stored")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_IndexNote_NotDurable(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	ticket, err := svc.IndexNote(ctx, testNote("n1", "transient search entry"))
	require.NoError(t, err)
	require.NoError(t, ticket.Wait(ctx))

	matches, err := svc.Search(ctx, "transient search entry", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	_, err = svc.Notes().Get(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNotFound, "IndexNote leaves durability to the caller")
}

func TestService_Reindex_BackfillsFromStore(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	// Written durably behind the pipeline's back, so nothing is indexed.
	require.NoError(t, svc.Notes().Put(ctx, testNote("n1", "glacier hike packing list")))
	require.NoError(t, svc.Notes().Put(ctx, testNote("n2", "library card renewal")))

	matches, err := svc.Search(ctx, "glacier hike", 5, nil)
	require.NoError(t, err)
	require.Empty(t, matches)

	stats, err := svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 2, stats.Indexed)

	matches, err = svc.Search(ctx, "glacier hike", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "n1", matches[0].ID)
}

func TestService_ReindexNotes_ReplacesIndex(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddNote(ctx, testNote("old", "stale entry")))
	svc.Flush()

	count, err := svc.ReindexNotes(ctx, []*core.Note{testNote("new", "fresh entry")})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches, err := svc.Search(ctx, "stale entry", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, matches, "a rebuild replaces the whole index")

	matches, err = svc.Search(ctx, "fresh entry", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "new", matches[0].ID)
}

func TestService_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()

	open := func() *Service {
		svc, err := Open(ctx,
			WithPath(dir),
			WithEmbedder(mock.NewMockEmbedderWithDimension(testDim)),
			WithDimension(testDim))
		require.NoError(t, err)
		return svc
	}

	svc := open()
	require.NoError(t, svc.AddNote(ctx, testNote("n1", "harbor tide tables")))
	svc.Flush()
	require.NoError(t, svc.Close())

	svc = open()
	defer svc.Close()

	assert.False(t, svc.NeedsReindex())

	matches, err := svc.Search(ctx, "harbor tide", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "n1", matches[0].ID)

	note, err := svc.Notes().Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "harbor tide tables", note.Text)
}

func TestService_RepairsUnusableSnapshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	ctx := context.Background()

	svc, err := Open(ctx,
		WithPath(dir),
		WithEmbedder(mock.NewMockEmbedderWithDimension(testDim)),
		WithDimension(testDim))
	require.NoError(t, err)
	require.NoError(t, svc.AddNote(ctx, testNote("n1", "orchard spraying calendar")))
	svc.Flush()
	require.NoError(t, svc.Close())

	// Clobber the persisted snapshot, leaving the notes intact.
	reg := storage.NewMigrations()
	storage.RegisterNotesMigrations(reg)
	indexer.RegisterSnapshotMigrations(reg)
	store, err := badger.Open(ctx, dir, []storage.CollectionSpec{storage.NotesSpec(), indexer.SnapshotSpec()}, reg)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, indexer.SnapshotCollection, "latest", storage.Record{
		"snapshot":  metadata.Bytes([]byte("not a snapshot")),
		"dimension": metadata.Int(testDim),
	}))
	require.NoError(t, store.Close())

	svc, err = Open(ctx,
		WithPath(dir),
		WithEmbedder(mock.NewMockEmbedderWithDimension(testDim)),
		WithDimension(testDim))
	require.NoError(t, err)
	defer svc.Close()

	assert.True(t, svc.NeedsReindex(), "a discarded snapshot flags a rebuild")

	stats, err := svc.ReindexIfNeeded(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.False(t, svc.NeedsReindex())

	matches, err := svc.Search(ctx, "orchard spraying", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "n1", matches[0].ID)

	// Flag is clear, so a second call is a no-op.
	stats, err = svc.ReindexIfNeeded(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Scanned)
}

func TestService_KeywordOnly(t *testing.T) {
	svc := openTestService(t, WithEmbedder(nil))
	ctx := context.Background()

	require.NoError(t, svc.AddNote(ctx, testNote("n1", "fuse box labeling")))
	svc.Flush()

	matches, err := svc.Search(ctx, "fuse box", 5, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "n1", matches[0].ID)
}

type recordingMonitor struct {
	query    string
	keyword  []string
	vector   []string
	finished int
}

func (m *recordingMonitor) Start(query string)              { m.query = query }
func (m *recordingMonitor) AfterKeywordSearch(ids []string) { m.keyword = ids }
func (m *recordingMonitor) AfterVectorSearch(ids []string)  { m.vector = ids }
func (m *recordingMonitor) VerbatimBoost(id string)         {}
func (m *recordingMonitor) Finish(matches []index.Match)    { m.finished = len(matches) }

func TestService_SearchWithMonitor(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddNote(ctx, testNote("n1", "greenhouse ventilation notes")))
	svc.Flush()

	monitor := &recordingMonitor{}
	matches, err := svc.SearchWithMonitor(ctx, "greenhouse ventilation", 5, nil, monitor)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "greenhouse ventilation", monitor.query)
	assert.Contains(t, monitor.keyword, "n1")
	assert.Equal(t, len(matches), monitor.finished)
}

func TestService_Stats(t *testing.T) {
	svc := openTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddNote(ctx, testNote("n1", "stats fodder")))
	svc.Flush()

	stats := svc.Stats()
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, testDim, stats.Dimension)
	assert.GreaterOrEqual(t, stats.Queue.Completed, uint64(1))
	assert.False(t, stats.NeedsReindex)
}

func TestService_Close(t *testing.T) {
	svc, err := Open(context.Background(), testOptions()...)
	require.NoError(t, err)

	assert.NoError(t, svc.Close())
}
