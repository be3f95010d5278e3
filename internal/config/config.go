// Package config loads zrecord settings from defaults, an optional
// zrecord.yaml and ZRECORD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zarlcorp/zrecord/internal/audit"
	"github.com/zarlcorp/zrecord/internal/persist"
)

const (
	appName   = "zrecord"
	envPrefix = "ZRECORD"
)

// Config holds the runtime settings.
type Config struct {
	DataDir      string        `mapstructure:"data_dir"`
	DataFile     string        `mapstructure:"data_file"`
	BackupFile   string        `mapstructure:"backup_file"`
	LogFile      string        `mapstructure:"log_file"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
	TUI          bool          `mapstructure:"tui"`
}

// LogPath returns the audit log path inside the data directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, c.LogFile)
}

// DataDir returns the default data directory for zrecord.
func DataDir() string {
	if d := os.Getenv("XDG_DATA_HOME"); d != "" {
		return filepath.Join(d, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".local", "share", appName)
}

// searchPaths lists the directories checked for zrecord.yaml.
func searchPaths() []string {
	paths := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, appName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}
	return paths
}

// Load reads configuration from the standard search paths.
func Load() (*Config, error) {
	return LoadFrom(searchPaths()...)
}

// LoadFrom reads configuration looking for zrecord.yaml in paths.
// A missing file is not an error.
func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("data_dir", DataDir())
	v.SetDefault("data_file", persist.DefaultPrimary)
	v.SetDefault("backup_file", persist.DefaultBackup)
	v.SetDefault("log_file", audit.DefaultFile)
	v.SetDefault("startup_delay", 900*time.Millisecond)
	v.SetDefault("tui", true)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for key, name := range map[string]string{
		"data_file":   c.DataFile,
		"backup_file": c.BackupFile,
		"log_file":    c.LogFile,
	} {
		if name == "" {
			return fmt.Errorf("config: %s must not be empty", key)
		}
	}
	if c.DataFile == c.BackupFile {
		return fmt.Errorf("config: data_file and backup_file must differ")
	}
	if c.StartupDelay < 0 {
		return fmt.Errorf("config: startup_delay must not be negative")
	}
	return nil
}
