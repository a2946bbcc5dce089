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
	Import      ImportConfig      `toml:"import"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	LastFM LastFMConfig `toml:"lastfm"`
}

// LastFMConfig contains Last.fm API credentials.
//
// CallbackPort is the localhost port the signup flow listens on for the
// authorized token; zero disables the callback server and the flow polls
// auth.getSession instead.
type LastFMConfig struct {
	APIKey       string `toml:"api_key"`
	APISecret    string `toml:"api_secret"`
	CallbackPort int    `toml:"callback_port"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ImportConfig contains tuning knobs for the scrobble import pipeline.
type ImportConfig struct {
	RateLimit   float64 `toml:"rate_limit"`    // Last.fm requests per second
	PauseEvery  int     `toml:"pause_every"`   // records between courtesy pauses
	PauseMillis int     `toml:"pause_millis"`  // courtesy pause length
	RetryCount  int     `toml:"retry_count"`   // duration lookup attempts
	RetrySleep  int     `toml:"retry_seconds"` // seconds between lookup attempts
}

// PauseDuration returns the courtesy pause as a [time.Duration].
func (c ImportConfig) PauseDuration() time.Duration {
	return time.Duration(c.PauseMillis) * time.Millisecond
}

// RetryBackoff returns the fixed sleep between duration lookup attempts.
func (c ImportConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetrySleep) * time.Second
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
