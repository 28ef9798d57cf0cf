package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)

	log.Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestMultiLogger_WritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()

	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogDownloadEvent("download_completed", zap.String("title", "Cats"))
	ml.LogAppError("history append failed", zap.String("path", "h.json"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	entries, err := reader.ReadLogs(CategoryDownload, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "download_completed", entries[0].Message)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "Cats", entries[0].Fields["title"])
	assert.NotEmpty(t, entries[0].Timestamp)

	entries, err = reader.ReadLogs(CategoryError, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "error", entries[0].Level)
}

func TestNewMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{Level: "info"})
	assert.Error(t, err)
}

func TestLogReader_RawLinesAndLimit(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)

	content := "=== [2024-01-01 10:00:00] Download: job-1 ===\n" +
		"[youtube] abc: Downloading webpage\n" +
		"\n" +
		"[SUCCESS] done\n"
	require.NoError(t, os.WriteFile(reader.GetLogPath(CategoryYTDLP, time.Now()), []byte(content), 0644))

	entries, err := reader.ReadTodayLogs(CategoryYTDLP, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1, "blank line is within the limit window but skipped")
	assert.Equal(t, "[SUCCESS] done", entries[0].Message)

	entries, err = reader.ReadTodayLogs(CategoryYTDLP, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestLogReader_MissingFile(t *testing.T) {
	reader := NewLogReader(t.TempDir())

	entries, err := reader.ReadTodayLogs(CategoryDownload, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogReader_Search(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	ml.LogDownloadEvent("download_started", zap.String("url", "https://youtu.be/cats"))
	ml.LogDownloadEvent("download_started", zap.String("url", "https://youtu.be/dogs"))
	require.NoError(t, ml.Close())

	entries, err := NewLogReader(dir).SearchLogs(CategoryDownload, time.Now(), "cats", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "https://youtu.be/cats", entries[0].Fields["url"])
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryDownload))
	assert.True(t, ValidCategory(CategoryYTDLP))
	assert.False(t, ValidCategory("queue"))
}

func TestLoggerAdapter_NilMultiLogger(t *testing.T) {
	adapter := NewSingleLoggerAdapter(nil)

	assert.NotNil(t, adapter.General())
	assert.NotNil(t, adapter.Download())
	adapter.LogDownloadEvent("ignored")
	adapter.LogError("ignored")
	assert.Nil(t, adapter.GetMultiLogger())
}
