package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/yt-grab-go/internal/domain"
)

// EnvPrefix is the prefix for environment overrides, e.g. YTGRAB_SEARCH_API_KEY
const EnvPrefix = "YTGRAB"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	// Start with default config
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.yt-grab")
		v.AddConfigPath("/etc/yt-grab")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// never appear in a config file
func setDefaults(v *viper.Viper, config *domain.Config) {
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}
}

// configValues flattens config into viper keys
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host":         config.Server.Host,
		"server.port":         config.Server.Port,
		"server.cors_origins": config.Server.CORSOrigins,

		"download.base_dir":   config.Download.BaseDir,
		"download.output_dir": config.Download.OutputDir,

		"history.backend":       config.History.Backend,
		"history.path":          config.History.Path,
		"history.database_path": config.History.DatabasePath,

		"extractor.ytdlp_binary":          config.Extractor.YTDLPBinary,
		"extractor.ffmpeg_location":       config.Extractor.FFmpegLocation,
		"extractor.cookie_file":           config.Extractor.CookieFile,
		"extractor.no_check_certificates": config.Extractor.NoCheckCertificates,
		"extractor.metadata_cache_size":   config.Extractor.MetadataCacheSize,
		"extractor.metadata_cache_ttl":    config.Extractor.MetadataCacheTTL,

		"search.api_key":     config.Search.APIKey,
		"search.max_results": config.Search.MaxResults,
		"search.endpoint":    config.Search.Endpoint,

		"notification.enabled": config.Notification.Enabled,
		"notification.method":  config.Notification.Method,

		"logging.level":       config.Logging.Level,
		"logging.format":      config.Logging.Format,
		"logging.output_path": config.Logging.OutputPath,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.OutputDir = expandPath(config.Download.OutputDir)
	config.History.Path = expandPath(config.History.Path)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Extractor.CookieFile = expandPath(config.Extractor.CookieFile)
	config.Extractor.FFmpegLocation = expandPath(config.Extractor.FFmpegLocation)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	// $HOME first so it resolves even where HOME is unset (Windows)
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	for _, origin := range config.Server.CORSOrigins {
		if strings.Contains(origin, "*") ||
			!(strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")) {
			return fmt.Errorf("invalid CORS origin %q: want an explicit http(s) origin", origin)
		}
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	switch config.History.Backend {
	case domain.HistoryBackendJSON:
		if config.History.Path == "" {
			return fmt.Errorf("history path not configured")
		}
	case domain.HistoryBackendSQLite:
		if config.History.DatabasePath == "" {
			return fmt.Errorf("history database path not configured")
		}
	default:
		return fmt.Errorf("unknown history backend: %q", config.History.Backend)
	}

	if config.Extractor.YTDLPBinary == "" {
		return fmt.Errorf("yt-dlp binary not configured")
	}

	if config.Extractor.MetadataCacheSize < 0 {
		return fmt.Errorf("metadata cache size cannot be negative")
	}

	if config.Search.MaxResults < 1 || config.Search.MaxResults > 50 {
		return fmt.Errorf("search max results must be between 1 and 50, got %d", config.Search.MaxResults)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file. The search API key is never
// written; supply it through YTGRAB_SEARCH_API_KEY.
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		switch key {
		case "search.api_key":
			continue
		case "extractor.metadata_cache_ttl":
			value = config.Extractor.MetadataCacheTTL.String()
		}
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
