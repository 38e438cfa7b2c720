package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tunegrab/internal/logger"
)

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// SpotifyConfig holds the catalog API credentials.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LibraryServerConfig points at the media server that indexes placed files.
type LibraryServerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config contains the program configuration
type Config struct {
	ListenAddr          string              `yaml:"listen_addr"`
	DownloadDir         string              `yaml:"download_dir"`
	LibraryDir          string              `yaml:"library_dir"`
	LibraryServer       LibraryServerConfig `yaml:"library_server"`
	OutputFormat        string              `yaml:"output_format"`
	AudioQuality        string              `yaml:"audio_quality"`
	Spotify             SpotifyConfig       `yaml:"spotify"`
	ConfidenceThreshold float64             `yaml:"confidence_threshold"`
	ConfidenceMargin    float64             `yaml:"confidence_margin"`
	JobRetention        Duration            `yaml:"job_retention"`
	StageTimeout        Duration            `yaml:"stage_timeout"`
	EmbedLyrics         bool                `yaml:"embed_lyrics"`
	Log                 logger.Config       `yaml:"log"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:          ":8080",
		DownloadDir:         filepath.Join(os.TempDir(), "tunegrab"),
		LibraryDir:          "/music",
		OutputFormat:        "mp3",
		AudioQuality:        "192",
		ConfidenceThreshold: 0.80,
		ConfidenceMargin:    0.05,
		JobRetention:        Duration(5 * time.Second),
		StageTimeout:        Duration(10 * time.Minute),
		Log: logger.Config{
			Level:      "info",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads configuration in order: defaults, YAML file, .env file, then
// environment variables. If path is empty, standard locations are searched.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()
	applyEnv(&cfg)

	cfg.DownloadDir = ExpandHome(cfg.DownloadDir)
	cfg.LibraryDir = ExpandHome(cfg.LibraryDir)

	return cfg, nil
}

// applyEnv overlays environment variables on top of file values. Secrets are
// normally provided this way rather than committed to a YAML file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TUNEGRAB_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TUNEGRAB_DOWNLOAD_DIR"); v != "" {
		cfg.DownloadDir = v
	}
	if v := os.Getenv("TUNEGRAB_LIBRARY_DIR"); v != "" {
		cfg.LibraryDir = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		cfg.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		cfg.Spotify.ClientSecret = v
	}
	if v := os.Getenv("LIBRARY_SERVER_URL"); v != "" {
		cfg.LibraryServer.URL = v
	}
	if v := os.Getenv("LIBRARY_SERVER_USERNAME"); v != "" {
		cfg.LibraryServer.Username = v
	}
	if v := os.Getenv("LIBRARY_SERVER_PASSWORD"); v != "" {
		cfg.LibraryServer.Password = v
	}
	if v := os.Getenv("TUNEGRAB_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = v
	}
	if v := os.Getenv("TUNEGRAB_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("TUNEGRAB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./tunegrab.yaml",
		"./tunegrab.yml",
		filepath.Join(home, ".config", "tunegrab", "config.yaml"),
		filepath.Join(home, ".config", "tunegrab", "config.yml"),
	}

	for _, path := range locations {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download_dir cannot be empty")
	}

	validFormats := []string{"mp3", "m4a", "opus", "flac", "wav", "aac"}
	isValid := false
	for _, format := range validFormats {
		if c.OutputFormat == format {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("unsupported output format '%s', valid formats: %v", c.OutputFormat, validFormats)
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0.0 and 1.0, got %.2f", c.ConfidenceThreshold)
	}
	if c.ConfidenceMargin < 0 || c.ConfidenceMargin > 1 {
		return fmt.Errorf("confidence_margin must be between 0.0 and 1.0, got %.2f", c.ConfidenceMargin)
	}
	if c.JobRetention <= 0 {
		return fmt.Errorf("job_retention must be positive, got %s", c.JobRetention.Std())
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage_timeout must be positive, got %s", c.StageTimeout.Std())
	}

	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client_id and client_secret are required (SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)")
	}

	if c.LibraryServer.URL != "" {
		if !strings.HasPrefix(c.LibraryServer.URL, "http://") && !strings.HasPrefix(c.LibraryServer.URL, "https://") {
			return fmt.Errorf("library_server.url must start with http:// or https://")
		}
	}

	return nil
}
