package sources

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test source store
func createTestSourceStore(t *testing.T) *SourceStore {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")
	store, err := NewSourceStore(dbPath, NewMapper(zerolog.Nop()))
	require.NoError(t, err, "should create source store")
	t.Cleanup(func() { store.Close() })
	return store
}

// Test helper: a minimal current-form source
func createTestBookSource(url, name string) *BookSource {
	s := newBookSource()
	s.BookSourceURL = url
	s.BookSourceName = name
	s.RuleToc = &TocRule{ChapterList: ".toc a"}
	return s
}

// TestNewSourceStore_InitializesSchema verifies schema creation
func TestNewSourceStore_InitializesSchema(t *testing.T) {
	store := createTestSourceStore(t)

	sources, err := store.ListSources(SourceFilter{})
	require.NoError(t, err, "book_sources table should exist")
	assert.Empty(t, sources)
}

// TestNewSourceStore_ExistingDatabase verifies data survives reopening
func TestNewSourceStore_ExistingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store1, err := NewSourceStore(dbPath, NewMapper(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, store1.UpsertSource(createTestBookSource("http://a", "A")))
	store1.Close()

	store2, err := NewSourceStore(dbPath, NewMapper(zerolog.Nop()))
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.GetSource("http://a")
	require.NoError(t, err)
	assert.Equal(t, "A", got.BookSourceName)
}

// TestUpsertSource_RoundTrip verifies the full document is stored
func TestUpsertSource_RoundTrip(t *testing.T) {
	store := createTestSourceStore(t)

	source := createTestBookSource("http://a", "A")
	source.RuleContent = &ContentRule{Content: "#content"}
	require.NoError(t, store.UpsertSource(source))

	got, err := store.GetSource("http://a")
	require.NoError(t, err)
	assert.Equal(t, *source, got.BookSource)
	assert.False(t, got.CreatedAt.IsZero())
}

// TestUpsertSource_ReplacesExisting verifies the URL is the identity
func TestUpsertSource_ReplacesExisting(t *testing.T) {
	store := createTestSourceStore(t)

	require.NoError(t, store.UpsertSource(createTestBookSource("http://a", "First")))
	first, err := store.GetSource("http://a")
	require.NoError(t, err)

	require.NoError(t, store.UpsertSource(createTestBookSource("http://a", "Second")))
	second, err := store.GetSource("http://a")
	require.NoError(t, err)

	assert.Equal(t, "Second", second.BookSourceName)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	all, err := store.ListSources(SourceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// TestUpsertSource_MissingURL verifies a source without identity is refused
func TestUpsertSource_MissingURL(t *testing.T) {
	store := createTestSourceStore(t)

	err := store.UpsertSource(createTestBookSource(" ", "A"))
	assert.ErrorIs(t, err, ErrMissingSourceURL)
}

// TestGetSource_NotFound verifies the sentinel error
func TestGetSource_NotFound(t *testing.T) {
	store := createTestSourceStore(t)

	_, err := store.GetSource("http://missing")
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

// TestListSources_Filters verifies group, enabled and pagination filters
func TestListSources_Filters(t *testing.T) {
	store := createTestSourceStore(t)

	a := createTestBookSource("http://a", "A")
	a.BookSourceGroup = "web"
	a.CustomOrder = 2
	b := createTestBookSource("http://b", "B")
	b.BookSourceGroup = "web"
	b.Enabled = false
	b.CustomOrder = 1
	c := createTestBookSource("http://c", "C")
	for _, s := range []*BookSource{a, b, c} {
		require.NoError(t, store.UpsertSource(s))
	}

	all, err := store.ListSources(SourceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"http://c", "http://b", "http://a"}, sourceURLs(all))

	group := "web"
	web, err := store.ListSources(SourceFilter{Group: &group})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b", "http://a"}, sourceURLs(web))

	enabled := true
	on, err := store.ListSources(SourceFilter{Enabled: &enabled})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://c", "http://a"}, sourceURLs(on))

	page, err := store.ListSources(SourceFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b"}, sourceURLs(page))

	rest, err := store.ListSources(SourceFilter{Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a"}, sourceURLs(rest))
}

// TestDeleteSource verifies deletion and the not-found case
func TestDeleteSource(t *testing.T) {
	store := createTestSourceStore(t)
	require.NoError(t, store.UpsertSource(createTestBookSource("http://a", "A")))

	require.NoError(t, store.DeleteSource("http://a"))
	_, err := store.GetSource("http://a")
	assert.ErrorIs(t, err, ErrSourceNotFound)

	assert.ErrorIs(t, store.DeleteSource("http://a"), ErrSourceNotFound)
}

// TestImport_MixedBatch verifies legacy and current documents are stored and
// rejected ones are reported
func TestImport_MixedBatch(t *testing.T) {
	store := createTestSourceStore(t)

	result, err := store.Import([]byte(`[
		{"bookSourceUrl": "http://legacy", "bookSourceName": "L", "ruleSearchName": "a#b"},
		{"bookSourceName": "orphan"},
		{"bookSourceUrl": "http://current", "bookSourceName": "C", "ruleToc": {"chapterList": "li"}}
	]`))
	require.NoError(t, err)

	assert.Equal(t, []string{"http://legacy", "http://current"}, result.Imported)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, ErrMissingSourceURL.Error(), result.Rejected[0].Reason)

	legacy, err := store.GetSource("http://legacy")
	require.NoError(t, err)
	assert.Equal(t, "a##b", legacy.RuleSearch.Name)

	current, err := store.GetSource("http://current")
	require.NoError(t, err)
	assert.Equal(t, "li", current.RuleToc.ChapterList)
}

// TestImport_InvalidJSON verifies an unparseable batch stores nothing
func TestImport_InvalidJSON(t *testing.T) {
	store := createTestSourceStore(t)

	_, err := store.Import([]byte(`[{`))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	all, err := store.ListSources(SourceFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func sourceURLs(sources []StoredSource) []string {
	urls := make([]string, 0, len(sources))
	for _, s := range sources {
		urls = append(urls, s.BookSourceURL)
	}
	return urls
}
