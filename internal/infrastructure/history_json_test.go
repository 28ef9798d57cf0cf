package infrastructure

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

func newTestJSONStore(t *testing.T) *JSONHistoryStore {
	t.Helper()
	store, err := NewJSONHistoryStore(filepath.Join(t.TempDir(), "nested", "download_history.json"))
	require.NoError(t, err)
	return store
}

func record(title string, format domain.Mode) domain.DownloadResult {
	return domain.DownloadResult{
		Title:  title,
		URL:    "https://youtu.be/" + title,
		Format: format,
		Time:   domain.NewTimestamp(time.Now()),
	}
}

func TestJSONHistoryStore_EmptyWhenMissing(t *testing.T) {
	store := newTestJSONStore(t)

	records, err := store.ListAll()
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestJSONHistoryStore_EmptyWhenBlank(t *testing.T) {
	store := newTestJSONStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("  \n"), 0644))

	records, err := store.ListAll()
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.Append(record("A", domain.ModeAudio)))
	records, err = store.ListAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestJSONHistoryStore_AppendKeepsOrder(t *testing.T) {
	store := newTestJSONStore(t)

	a := record("A", domain.ModeAudio)
	b := record("B", domain.ModeVideo)
	require.NoError(t, store.Append(a))
	require.NoError(t, store.Append(b))

	records, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Title)
	assert.Equal(t, domain.ModeAudio, records[0].Format)
	assert.Equal(t, "B", records[1].Title)
	assert.True(t, a.Time.Equal(records[0].Time.Time))
}

func TestJSONHistoryStore_FileFormat(t *testing.T) {
	store := newTestJSONStore(t)
	require.NoError(t, store.Append(record("Cats", domain.ModeVideo)))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var raw []map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "Cats", raw[0]["title"])
	assert.Equal(t, "https://youtu.be/Cats", raw[0]["url"])
	assert.Equal(t, "video", raw[0]["format"])
	assert.NotEmpty(t, raw[0]["time"])
	assert.Contains(t, string(data), "\n  {", "two-space indentation")
}

func TestJSONHistoryStore_ReadsExistingFile(t *testing.T) {
	store := newTestJSONStore(t)
	existing := `[{"title": "Old", "url": "https://youtu.be/old", "format": "audio", "time": "2024-03-01T12:30:00.123456"}]`
	require.NoError(t, os.WriteFile(store.Path(), []byte(existing), 0644))

	require.NoError(t, store.Append(record("New", domain.ModeVideo)))

	records, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Old", records[0].Title)
	assert.Equal(t, 2024, records[0].Time.Year())
	assert.Equal(t, "New", records[1].Title)
}

func TestJSONHistoryStore_CorruptFileIsNotOverwritten(t *testing.T) {
	store := newTestJSONStore(t)
	corrupt := []byte(`[{"title": "A",`)
	require.NoError(t, os.WriteFile(store.Path(), corrupt, 0644))

	_, err := store.ListAll()
	var corruptErr *domain.CorruptHistoryError
	require.True(t, errors.As(err, &corruptErr))
	assert.Equal(t, store.Path(), corruptErr.Path)

	err = store.Append(record("B", domain.ModeAudio))
	require.True(t, errors.As(err, &corruptErr))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, corrupt, data)
}

func TestJSONHistoryStore_WrongShapeIsCorrupt(t *testing.T) {
	store := newTestJSONStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte(`{"title": "not a list"}`), 0644))

	_, err := store.ListAll()
	var corruptErr *domain.CorruptHistoryError
	assert.True(t, errors.As(err, &corruptErr))
}

func TestJSONHistoryStore_ConcurrentAppends(t *testing.T) {
	store := newTestJSONStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Append(record(fmt.Sprintf("t%d", i), domain.ModeAudio)))
		}(i)
	}
	wg.Wait()

	records, err := store.ListAll()
	require.NoError(t, err)
	assert.Len(t, records, n)
}

func TestJSONHistoryStore_SharedFileAcrossStores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "download_history.json")
	first, err := NewJSONHistoryStore(path)
	require.NoError(t, err)
	second, err := NewJSONHistoryStore(path)
	require.NoError(t, err)

	require.NoError(t, first.Append(record("A", domain.ModeAudio)))
	require.NoError(t, second.Append(record("B", domain.ModeVideo)))

	records, err := first.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "B", records[1].Title)
}

func TestNewJSONHistoryStore_RequiresPath(t *testing.T) {
	_, err := NewJSONHistoryStore("")
	assert.Error(t, err)
}

func compactEntries(t *testing.T, data []byte) []string {
	t.Helper()
	var entries []json.RawMessage
	require.NoError(t, json.Unmarshal(data, &entries))

	out := make([]string, len(entries))
	for i, entry := range entries {
		var buf bytes.Buffer
		require.NoError(t, json.Compact(&buf, entry))
		out[i] = buf.String()
	}
	return out
}

func TestJSONHistoryStore_AppendLeavesExistingEntriesUntouched(t *testing.T) {
	store := newTestJSONStore(t)
	existing := []byte(`[
  {"title": "Cats & dogs", "url": "https://youtu.be/a", "format": "video", "time": "2024-01-01T00:00:00+00:00", "note": "manual"},
  {"title": "B", "url": "https://youtu.be/b", "format": "audio", "time": "2024-03-01T12:30:00.100000"}
]`)
	require.NoError(t, os.WriteFile(store.Path(), existing, 0644))
	before := compactEntries(t, existing)

	require.NoError(t, store.Append(record("New", domain.ModeAudio)))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	after := compactEntries(t, data)

	require.Len(t, after, 3)
	assert.Equal(t, before, after[:2])
	assert.Contains(t, after[2], `"title":"New"`)

	records, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Cats & dogs", records[0].Title)
}

func TestJSONHistoryStore_BadEntryIsCorrupt(t *testing.T) {
	store := newTestJSONStore(t)
	content := []byte(`[{"title": "A", "time": "yesterday"}]`)
	require.NoError(t, os.WriteFile(store.Path(), content, 0644))

	err := store.Append(record("B", domain.ModeAudio))
	var corruptErr *domain.CorruptHistoryError
	require.True(t, errors.As(err, &corruptErr))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, content, data)
}
