// Package config provides configuration management for supportlens.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	json "github.com/goccy/go-json"
)

const (
	// DefaultWorkerPort is the default HTTP port for the query service.
	DefaultWorkerPort = 38710

	// DefaultModel is the chat model used for intent extraction and
	// grounded answering (any OpenAI-compatible endpoint works).
	DefaultModel = "gpt-4o-mini"

	// DefaultLLMBaseURL is the default chat-completions endpoint.
	DefaultLLMBaseURL = "https://api.openai.com/v1"

	// DefaultSnapshotRefreshMinutes is how often the snapshot is re-fetched.
	DefaultSnapshotRefreshMinutes = 10

	// DefaultInterpretationCacheSize bounds the interpretation LRU cache.
	DefaultInterpretationCacheSize = 512
)

// Config holds the application configuration.
type Config struct {
	// Worker settings
	WorkerPort int `json:"worker_port"`

	// Storage settings
	DataDir  string `json:"data_dir"`
	RedisURL string `json:"redis_url"`

	// LLM settings
	Model      string `json:"model"`
	LLMBaseURL string `json:"llm_base_url"`
	LLMAPIKey  string `json:"-"`

	// Snapshot settings
	SnapshotSourceURL      string `json:"snapshot_source_url"`
	SnapshotRefreshMinutes int    `json:"snapshot_refresh_minutes"`

	// Interpretation cache settings
	InterpretationCacheSize int `json:"interpretation_cache_size"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// DataDir returns the data directory path (~/.supportlens).
func DataDir() string {
	if dir := os.Getenv("SUPPORTLENS_DATA_DIR"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".supportlens")
}

// SnapshotPath returns the local-tier snapshot file path.
func SnapshotPath() string {
	return filepath.Join(DataDir(), "snapshot.json")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		WorkerPort:              DefaultWorkerPort,
		DataDir:                 DataDir(),
		Model:                   DefaultModel,
		LLMBaseURL:              DefaultLLMBaseURL,
		SnapshotRefreshMinutes:  DefaultSnapshotRefreshMinutes,
		InterpretationCacheSize: DefaultInterpretationCacheSize,
	}
}

// Load loads configuration from the settings file, merging with defaults.
// Environment variables take precedence over file settings.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		// Load settings into a map to preserve unknown fields
		var settings map[string]interface{}
		if err := json.Unmarshal(data, &settings); err == nil {
			applySettings(cfg, settings)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// applySettings maps settings-file keys onto the config.
func applySettings(cfg *Config, settings map[string]interface{}) {
	if v, ok := settings["SUPPORTLENS_WORKER_PORT"].(float64); ok && v > 0 {
		cfg.WorkerPort = int(v)
	}
	if v, ok := settings["SUPPORTLENS_REDIS_URL"].(string); ok {
		cfg.RedisURL = v
	}
	if v, ok := settings["SUPPORTLENS_MODEL"].(string); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := settings["SUPPORTLENS_LLM_BASE_URL"].(string); ok && v != "" {
		cfg.LLMBaseURL = v
	}
	if v, ok := settings["SUPPORTLENS_SNAPSHOT_SOURCE_URL"].(string); ok {
		cfg.SnapshotSourceURL = v
	}
	if v, ok := settings["SUPPORTLENS_SNAPSHOT_REFRESH_MINUTES"].(float64); ok && v > 0 {
		cfg.SnapshotRefreshMinutes = int(v)
	}
	if v, ok := settings["SUPPORTLENS_INTERPRETATION_CACHE_SIZE"].(float64); ok && v > 0 {
		cfg.InterpretationCacheSize = int(v)
	}
}

// applyEnv overlays environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("SUPPORTLENS_WORKER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			cfg.WorkerPort = p
		}
	}
	if v := os.Getenv("SUPPORTLENS_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("SUPPORTLENS_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SUPPORTLENS_LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("SUPPORTLENS_LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("SUPPORTLENS_SNAPSHOT_SOURCE_URL"); v != "" {
		cfg.SnapshotSourceURL = v
	}
	if v := os.Getenv("SUPPORTLENS_SNAPSHOT_REFRESH_MINUTES"); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m > 0 {
			cfg.SnapshotRefreshMinutes = m
		}
	}
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	configOnce.Do(func() {
		var err error
		globalConfig, err = Load()
		if err != nil {
			globalConfig = Default()
		}
	})

	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}

// RemoteTierConfigured reports whether the Redis tier should be mounted.
// Tier selection is environment-driven so local development transparently
// uses the filesystem tier without code changes.
func (c *Config) RemoteTierConfigured() bool {
	return c.RedisURL != ""
}

// SnapshotSourceConfigured reports whether a vendor snapshot endpoint is
// set. Without one the service serves whatever the store already holds.
func (c *Config) SnapshotSourceConfigured() bool {
	return c.SnapshotSourceURL != ""
}
