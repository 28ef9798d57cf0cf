package infrastructure

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

func setupTestSQLiteStore(t *testing.T) *SQLiteHistoryStore {
	t.Helper()
	store, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "config", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteHistoryStore_EmptyList(t *testing.T) {
	store := setupTestSQLiteStore(t)

	records, err := store.ListAll()
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestSQLiteHistoryStore_AppendKeepsOrder(t *testing.T) {
	store := setupTestSQLiteStore(t)

	a := domain.DownloadResult{Title: "A", URL: "https://youtu.be/a", Format: domain.ModeAudio, Time: domain.NewTimestamp(time.Now())}
	b := domain.DownloadResult{Title: "B", URL: "https://youtu.be/b", Format: domain.ModeVideo, Time: domain.NewTimestamp(time.Now().Add(-time.Hour))}
	require.NoError(t, store.Append(a))
	require.NoError(t, store.Append(b))

	records, err := store.ListAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].Title, "insertion order, not time order")
	assert.Equal(t, domain.ModeAudio, records[0].Format)
	assert.Equal(t, "https://youtu.be/b", records[1].URL)
	assert.True(t, b.Time.Equal(records[1].Time.Time))
}

func TestSQLiteHistoryStore_Stats(t *testing.T) {
	store := setupTestSQLiteStore(t)

	for _, format := range []domain.Mode{domain.ModeAudio, domain.ModeVideo, domain.ModeAudio} {
		require.NoError(t, store.Append(domain.DownloadResult{Title: "t", URL: "https://youtu.be/t", Format: format, Time: domain.NewTimestamp(time.Now())}))
	}

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.Equal(t, &domain.HistoryStats{Total: 3, Video: 1, Audio: 2}, stats)
}
