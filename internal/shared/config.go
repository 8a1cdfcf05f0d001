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
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Download    DownloadConfig    `toml:"download"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AccessToken  string `toml:"access_token"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"access_token":  c.AccessToken,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DownloadConfig controls discovery, retrieval, retry pacing and output layout.
//
// Durations are expressed in (fractional) seconds.
type DownloadConfig struct {
	OutputDir              string          `toml:"output_dir"`
	ScratchDir             string          `toml:"scratch_dir"` // Empty means os.TempDir()
	PerPlaylistDir         bool            `toml:"per_playlist_dir"`
	Codec                  string          `toml:"codec"`
	Bitrate                string          `toml:"bitrate"`
	Tag                    bool            `toml:"tag"`
	MaxAttempts            int             `toml:"max_attempts"`
	Candidates             int             `toml:"candidates"`
	SearchURL              string          `toml:"search_url"`
	SearchSuffix           string          `toml:"search_suffix"`
	RequestIntervalSeconds float64         `toml:"request_interval_seconds"`
	BackoffMinSeconds      float64         `toml:"backoff_min_seconds"`
	BackoffMaxSeconds      float64         `toml:"backoff_max_seconds"`
	PauseMinSeconds        float64         `toml:"pause_min_seconds"`
	PauseMaxSeconds        float64         `toml:"pause_max_seconds"`
	FFmpegPath             string          `toml:"ffmpeg_path"`
	YtdlpPath              string          `toml:"ytdlp_path"`
	Aria2cPath             string          `toml:"aria2c_path"`
	Strategies             []string        `toml:"strategies"`
	Invidious              InvidiousConfig `toml:"invidious"`
}

// InvidiousConfig lists the public API mirrors used by the direct API strategy.
type InvidiousConfig struct {
	Instances            []string `toml:"instances"`
	TimeoutSeconds       float64  `toml:"timeout_seconds"`
	StreamTimeoutSeconds float64  `toml:"stream_timeout_seconds"`
}

// LogConfig controls the log file and verbosity.
type LogConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Seconds converts fractional seconds into a [time.Duration].
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Validate reports inconsistent download settings.
func (c *Config) Validate() error {
	d := c.Download
	switch {
	case d.MaxAttempts < 1:
		return fmt.Errorf("%w: download.max_attempts must be at least 1", ErrInvalidConfig)
	case d.Candidates < 1:
		return fmt.Errorf("%w: download.candidates must be at least 1", ErrInvalidConfig)
	case d.BackoffMinSeconds < 0 || d.BackoffMinSeconds > d.BackoffMaxSeconds:
		return fmt.Errorf("%w: download.backoff_min_seconds must be between 0 and backoff_max_seconds", ErrInvalidConfig)
	case d.PauseMinSeconds < 0 || d.PauseMinSeconds > d.PauseMaxSeconds:
		return fmt.Errorf("%w: download.pause_min_seconds must be between 0 and pause_max_seconds", ErrInvalidConfig)
	case len(d.Strategies) == 0:
		return fmt.Errorf("%w: download.strategies is empty", ErrInvalidConfig)
	case d.OutputDir == "":
		return fmt.Errorf("%w: download.output_dir is empty", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
