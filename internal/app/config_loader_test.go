package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

// isolateHome points $HOME at a temp dir so no real config is picked up
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	return home
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := isolateHome(t)

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8501, config.Server.Port)
	assert.Equal(t, filepath.Join(home, "Downloads", "yt-grab"), filepath.Clean(config.Download.BaseDir))
	assert.Equal(t, domain.HistoryBackendJSON, config.History.Backend)
	assert.Equal(t, filepath.Join(home, "Downloads", "yt-grab", "download_history.json"), filepath.Clean(config.History.Path))
	assert.Equal(t, 30*time.Minute, config.Extractor.MetadataCacheTTL)
	assert.Equal(t, int64(5), config.Search.MaxResults)
	assert.Empty(t, config.Search.APIKey)
	assert.Empty(t, config.Server.CORSOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("YTGRAB_SEARCH_API_KEY", "from-env")
	t.Setenv("YTGRAB_SERVER_PORT", "9090")
	t.Setenv("YTGRAB_HISTORY_BACKEND", "sqlite")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", config.Search.APIKey)
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, domain.HistoryBackendSQLite, config.History.Backend)
}

func TestLoadConfig_File(t *testing.T) {
	home := isolateHome(t)
	path := writeConfigFile(t, `
download:
  base_dir: ~/media
  output_dir: /srv/videos
history:
  backend: sqlite
  database_path: ~/media/history.db
extractor:
  ytdlp_binary: /opt/bin/yt-dlp
  metadata_cache_ttl: 5m
search:
  max_results: 10
server:
  cors_origins:
    - http://localhost:3000
`)

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "media"), config.Download.BaseDir)
	assert.Equal(t, "/srv/videos", config.Download.DownloadsDir())
	assert.Equal(t, filepath.Join(home, "media", "history.db"), config.History.DatabasePath)
	assert.Equal(t, "/opt/bin/yt-dlp", config.Extractor.YTDLPBinary)
	assert.Equal(t, 5*time.Minute, config.Extractor.MetadataCacheTTL)
	assert.Equal(t, int64(10), config.Search.MaxResults)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.CORSOrigins)
	assert.Equal(t, 8501, config.Server.Port, "unset keys keep defaults")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "history:\n  backend: redis\n"},
		{"max results too high", "search:\n  max_results: 80\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"empty binary", "extractor:\n  ytdlp_binary: \"\"\n"},
		{"wildcard origin", "server:\n  cors_origins: [\"*\"]\n"},
		{"origin without scheme", "server:\n  cors_origins: [\"localhost:3000\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			_, err := LoadConfig(writeConfigFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestSaveConfig_RoundTripWithoutAPIKey(t *testing.T) {
	isolateHome(t)
	config := domain.DefaultConfig()
	config.Download.BaseDir = "/data/yt-grab"
	config.History.Backend = domain.HistoryBackendSQLite
	config.Extractor.MetadataCacheTTL = 10 * time.Minute
	config.Search.APIKey = "secret"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, SaveConfig(config, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/yt-grab", loaded.Download.BaseDir)
	assert.Equal(t, domain.HistoryBackendSQLite, loaded.History.Backend)
	assert.Equal(t, 10*time.Minute, loaded.Extractor.MetadataCacheTTL)
	assert.Empty(t, loaded.Search.APIKey)
}

func TestExpandPath(t *testing.T) {
	home := isolateHome(t)
	t.Setenv("YTGRAB_TEST_DIR", "/var/media")

	assert.Equal(t, filepath.Join(home, "x"), expandPath("~/x"))
	assert.Equal(t, home+"/x", expandPath("$HOME/x"))
	assert.Equal(t, "/var/media/y", expandPath("$YTGRAB_TEST_DIR/y"))
	assert.Equal(t, "", expandPath(""))
}
