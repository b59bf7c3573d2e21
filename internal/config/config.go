package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Paths      PathsConfig      `mapstructure:"paths"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// PathsConfig holds filesystem locations
type PathsConfig struct {
	StateFile string `mapstructure:"state_file"` // persisted player state
	CacheDir  string `mapstructure:"cache_dir"`  // downloaded link audio
}

// ResolutionConfig holds link resolution tuning
type ResolutionConfig struct {
	AttemptTimeout   time.Duration `mapstructure:"attempt_timeout"`   // per extraction attempt
	DownloadTimeout  time.Duration `mapstructure:"download_timeout"`  // full audio download
	ThumbnailTimeout time.Duration `mapstructure:"thumbnail_timeout"` // cover art fetch
	ProvisionTimeout time.Duration `mapstructure:"provision_timeout"` // extractor install
	BinaryPath       string        `mapstructure:"binary_path"`       // yt-dlp override
	PythonPath       string        `mapstructure:"python_path"`       // interpreter override
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			StateFile: filepath.Join(defaultDataPath(), "player-state.json"),
			CacheDir:  filepath.Join(defaultDataPath(), "link-cache"),
		},
		Resolution: ResolutionConfig{
			AttemptTimeout:   30 * time.Second,
			DownloadTimeout:  5 * time.Minute,
			ThumbnailTimeout: 25 * time.Second,
			ProvisionTimeout: 90 * time.Second,
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "songdeck.log"),
			Level: "info",
		},
	}
}

// defaultDataPath returns the application data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "songdeck")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "songdeck")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "songdeck")
	}
}

// defaultConfigPath returns the config file directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "songdeck")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "songdeck")
	}
}

// Load reads configuration from the given file, the default locations, and
// SONGDECK_* environment variables. An empty path selects the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SONGDECK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file means defaults, which is the common case.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}
