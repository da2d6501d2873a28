package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// HTTPConfig configures registry requests.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// LabelsConfig configures where category labels are cached.
type LabelsConfig struct {
	Store string `mapstructure:"store"` // badger or dir
	Path  string `mapstructure:"path"`  // empty means the store's default location
}

// Config represents the application configuration.
type Config struct {
	ReplicateDir string        `mapstructure:"replicate_dir"`
	Lang         string        `mapstructure:"lang"`
	Host         string        `mapstructure:"host"`
	BaseURL      string        `mapstructure:"base_url"` // overrides the directory derived from host and lang
	LabelsURL    string        `mapstructure:"labels_url"`
	HTTP         HTTPConfig    `mapstructure:"http"`
	Labels       LabelsConfig  `mapstructure:"labels"`
	Logging      LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from the default file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/speakleash/config.yaml
//   - $HOME/.config/speakleash/config.yaml
//
// Environment variables are prefixed with SPEAKLEASH_ (e.g., SPEAKLEASH_LANG).
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration like Load, reading path instead of the
// default locations when path is not empty. An explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "speakleash"))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "speakleash"))
	}

	v.SetEnvPrefix("SPEAKLEASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.ReplicateDir, &cfg.Labels.Path, &cfg.Logging.Path} {
		if strings.HasPrefix(*p, "~") {
			*p = filepath.Join(homeDir, (*p)[1:])
		}
	}

	switch cfg.Labels.Store {
	case LabelStoreBadger, LabelStoreDir:
	default:
		return nil, fmt.Errorf("invalid labels.store %q: want %s or %s", cfg.Labels.Store, LabelStoreBadger, LabelStoreDir)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("replicate_dir", DefaultReplicateDir())
	v.SetDefault("lang", DefaultLang)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("base_url", "")
	v.SetDefault("labels_url", DefaultLabelsURL)

	v.SetDefault("http.timeout", DefaultTimeout)
	v.SetDefault("http.user_agent", DefaultUserAgent)

	v.SetDefault("labels.store", DefaultLabelStore)
	v.SetDefault("labels.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.components", map[string]string{})
}

// LabelsPath returns the configured label store location, or the default
// location of the configured store.
func (c *Config) LabelsPath() string {
	if c.Labels.Path != "" {
		return c.Labels.Path
	}
	if c.Labels.Store == LabelStoreDir {
		return filepath.Join(os.TempDir(), "speakleash")
	}
	return filepath.Join(CacheDir(), "labels")
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "speakleash"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "speakleash"), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file and returns its path.
// An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	var components strings.Builder
	for _, name := range []string{"fetch", "structure", "category", "catalog", "dataset", "records"} {
		fmt.Fprintf(&components, "    %s: %s\n", name, DefaultComponentLevels[name])
	}

	defaultConfig := fmt.Sprintf(`# Speakleash Dataset Client Configuration

# Directory holding cached registry documents and downloaded archives
replicate_dir: %s

# Registry language: pl or hr
lang: %s

# Registry root; base_url overrides the dataset directory derived from it
host: %s
base_url: ""

# Directory holding categories_pl.txt and categories_en.txt
labels_url: %s

# Registry requests
http:
  timeout: %s
  user_agent: %s

# Category label cache
labels:
  # badger or dir
  store: %s
  # Empty means $XDG_CACHE_HOME/speakleash/labels (badger) or $TMPDIR/speakleash (dir)
  path: ""

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means console only)
  path: ""
  rotation:
    max_size: 10MB
    max_backups: 5
  # Per-component log levels
  components:
%s`, DefaultReplicateDir(), DefaultLang, DefaultHost, DefaultLabelsURL, DefaultTimeout, DefaultUserAgent,
		DefaultLabelStore, components.String())

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/speakleash/.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "speakleash")
}

// StateDir returns $XDG_STATE_HOME/speakleash/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "speakleash")
}

// CacheDir returns $XDG_CACHE_HOME/speakleash/ for the label database.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "speakleash")
}

// DefaultReplicateDir returns the default replica directory.
func DefaultReplicateDir() string {
	return DataDir()
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "speakleash.log")
}
