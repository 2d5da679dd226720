package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Providers ProvidersConfig `toml:"providers"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	Queue     QueueConfig     `toml:"queue"`
	Server    ServerConfig    `toml:"server"`
}

// ProvidersConfig contains per-source-provider settings.
type ProvidersConfig struct {
	YouTube YouTubeConfig `toml:"youtube"`
	Spotify SpotifyConfig `toml:"spotify"`
	TikTok  TikTokConfig  `toml:"tiktok"`
}

// YouTubeConfig configures the two YouTube backends: the converter API used
// as the primary and the scraper mirrors used as the fallback.
type YouTubeConfig struct {
	ConverterURL string `toml:"converter_url"`
	Instance     string `toml:"instance"`
	DirectoryURL string `toml:"directory_url"`
	HeaderFile   string `toml:"header_file"`
}

// SpotifyConfig contains Spotify API credentials and the downloader host.
type SpotifyConfig struct {
	ClientID      string `toml:"client_id"`
	ClientSecret  string `toml:"client_secret"`
	APIURL        string `toml:"api_url"`
	DownloaderURL string `toml:"downloader_url"`
}

// TikTokConfig contains the TikTok resolver host.
type TikTokConfig struct {
	APIURL string `toml:"api_url"`
}

// StorageConfig contains durable object store settings.
type StorageConfig struct {
	UploadURL      string `toml:"upload_url"`
	Token          string `toml:"token"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
}

// CacheConfig selects and configures the delivery-cache key store.
type CacheConfig struct {
	Backend      string `toml:"backend"` // sqlite, redis or memory
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	RedisAddr    string `toml:"redis_addr"`
	RedisDB      int    `toml:"redis_db"`
}

// QueueConfig contains download queue settings.
type QueueConfig struct {
	TaskDelayMS int `toml:"task_delay_ms"`
}

// TaskDelay returns the courtesy delay applied after every queue task.
func (q QueueConfig) TaskDelay() time.Duration {
	if q.TaskDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(q.TaskDelayMS) * time.Millisecond
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
