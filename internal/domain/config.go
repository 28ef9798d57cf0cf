package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Download     DownloadConfig     `mapstructure:"download"`
	History      HistoryConfig      `mapstructure:"history"`
	Extractor    ExtractorConfig    `mapstructure:"extractor"`
	Search       SearchConfig       `mapstructure:"search"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"` // e.g. http://localhost:3000; empty = same origin only
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	OutputDir string `mapstructure:"output_dir"` // defaults to <base_dir>/downloads
}

// DownloadsDir returns the directory media files are written to
func (c DownloadConfig) DownloadsDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(c.BaseDir, "downloads")
}

// LogsDir returns the directory for category and raw yt-dlp logs
func (c DownloadConfig) LogsDir() string {
	return filepath.Join(c.BaseDir, "logs")
}

// ConfigDir returns the directory holding local state such as the history database
func (c DownloadConfig) ConfigDir() string {
	return filepath.Join(c.BaseDir, "config")
}

// History backends
const (
	HistoryBackendJSON   = "json"
	HistoryBackendSQLite = "sqlite"
)

// HistoryConfig contains download history configuration
type HistoryConfig struct {
	Backend      string `mapstructure:"backend"`       // json, sqlite
	Path         string `mapstructure:"path"`          // JSON history file
	DatabasePath string `mapstructure:"database_path"` // SQLite history database
}

// ExtractorConfig contains yt-dlp configuration
type ExtractorConfig struct {
	YTDLPBinary         string        `mapstructure:"ytdlp_binary"`
	FFmpegLocation      string        `mapstructure:"ffmpeg_location"`
	CookieFile          string        `mapstructure:"cookie_file"`
	NoCheckCertificates bool          `mapstructure:"no_check_certificates"`
	MetadataCacheSize   int           `mapstructure:"metadata_cache_size"`
	MetadataCacheTTL    time.Duration `mapstructure:"metadata_cache_ttl"`
}

// SearchConfig contains YouTube Data API configuration.
// The API key is only ever read from the config file or YTGRAB_SEARCH_API_KEY.
type SearchConfig struct {
	APIKey     string `mapstructure:"api_key"`
	MaxResults int64  `mapstructure:"max_results"`
	Endpoint   string `mapstructure:"endpoint"` // override for tests and proxies
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8501,
		},
		Download: DownloadConfig{
			BaseDir: "$HOME/Downloads/yt-grab",
		},
		History: HistoryConfig{
			Backend:      HistoryBackendJSON,
			Path:         "$HOME/Downloads/yt-grab/download_history.json",
			DatabasePath: "$HOME/Downloads/yt-grab/config/history.db",
		},
		Extractor: ExtractorConfig{
			YTDLPBinary:         "yt-dlp",
			NoCheckCertificates: true,
			MetadataCacheSize:   128,
			MetadataCacheTTL:    30 * time.Minute,
		},
		Search: SearchConfig{
			MaxResults: 5,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
