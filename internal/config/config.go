// Package config handles configuration management for lobo.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/lobo/internal/pathutil"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Watcher  WatcherConfig  `mapstructure:"watcher" yaml:"watcher"`
	Compiler CompilerConfig `mapstructure:"compiler" yaml:"compiler"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// WatcherConfig holds file watcher configuration.
type WatcherConfig struct {
	Backend        string   `mapstructure:"backend" yaml:"backend"` // notify or fsnotify
	PollIntervalMS int      `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`
	Recursive      bool     `mapstructure:"recursive" yaml:"recursive"`
	AutoStart      bool     `mapstructure:"auto_start" yaml:"auto_start"`
	IgnorePatterns []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns"`
}

// PollInterval returns the poll timeout as a duration.
func (w WatcherConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMS) * time.Millisecond
}

// CompilerConfig holds the external stylesheet compiler configuration.
type CompilerConfig struct {
	Command        string   `mapstructure:"command" yaml:"command"`
	Args           []string `mapstructure:"args" yaml:"args"`
	SourceExt      string   `mapstructure:"source_ext" yaml:"source_ext"`
	TargetExt      string   `mapstructure:"target_ext" yaml:"target_ext"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"` // 0 waits forever
}

// Timeout returns the compile timeout, zero meaning none.
func (c CompilerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StoreConfig holds persistence configuration for the watch list.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite, file or memory
	Path   string `mapstructure:"path" yaml:"path"`
	Key    string `mapstructure:"key" yaml:"key"`
}

// ServerConfig holds the local control API configuration.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Host    string `mapstructure:"host" yaml:"host"`
	Port    int    `mapstructure:"port" yaml:"port"`

	// AllowedOrigins lists browser origins besides localhost that may use
	// the API. Entries are exact origins or "*.domain" wildcards.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the http URL clients use to reach the server.
func (s ServerConfig) BaseURL() string {
	host := s.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, s.Port)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

// Load loads configuration from files and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.lobo")
		v.AddConfigPath("/etc/lobo")
	}

	v.SetEnvPrefix("LOBO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := postProcess(&cfg); err != nil {
		return nil, err
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	cfg := &Config{
		Watcher: WatcherConfig{
			Backend:        DefaultBackend,
			PollIntervalMS: 100,
			Recursive:      true,
			AutoStart:      true,
			IgnorePatterns: append([]string(nil), DefaultIgnorePatterns...),
		},
		Compiler: CompilerConfig{
			Command:   "lessc",
			Args:      append([]string(nil), DefaultCompilerArgs...),
			SourceExt: ".less",
			TargetExt: ".css",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Key:    DefaultStoreKey,
		},
		Server: ServerConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8767,

			AllowedOrigins: []string{},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
	return cfg
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("watcher.backend", d.Watcher.Backend)
	v.SetDefault("watcher.poll_interval_ms", d.Watcher.PollIntervalMS)
	v.SetDefault("watcher.recursive", d.Watcher.Recursive)
	v.SetDefault("watcher.auto_start", d.Watcher.AutoStart)
	v.SetDefault("watcher.ignore_patterns", d.Watcher.IgnorePatterns)

	v.SetDefault("compiler.command", d.Compiler.Command)
	v.SetDefault("compiler.args", d.Compiler.Args)
	v.SetDefault("compiler.source_ext", d.Compiler.SourceExt)
	v.SetDefault("compiler.target_ext", d.Compiler.TargetExt)
	v.SetDefault("compiler.timeout_seconds", d.Compiler.TimeoutSeconds)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", "")
	v.SetDefault("store.key", d.Store.Key)

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
}

// postProcess applies post-processing to configuration.
func postProcess(cfg *Config) error {
	cfg.Compiler.SourceExt = normalizeExt(cfg.Compiler.SourceExt)
	cfg.Compiler.TargetExt = normalizeExt(cfg.Compiler.TargetExt)
	cfg.Watcher.Backend = strings.ToLower(strings.TrimSpace(cfg.Watcher.Backend))
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if cfg.Store.Path == "" && cfg.Store.Driver != "memory" {
		dir, err := GetConfigDir()
		if err != nil {
			return fmt.Errorf("failed to resolve config directory: %w", err)
		}
		cfg.Store.Path = filepath.Join(dir, defaultStoreFile(cfg.Store.Driver))
	}
	if cfg.Store.Path != "" {
		absPath, err := pathutil.Absolute(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve store path: %w", err)
		}
		cfg.Store.Path = absPath
	}

	if cfg.Logging.File != "" {
		cfg.Logging.File = pathutil.ExpandHome(cfg.Logging.File)
	}

	return nil
}

// normalizeExt makes sure an extension starts with a dot.
func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}

func defaultStoreFile(driver string) string {
	if driver == "file" {
		return "store.yaml"
	}
	return "lobo.db"
}

// GetConfigDir returns the user config directory for lobo.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".lobo"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
