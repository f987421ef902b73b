package config

import (
	"fmt"
	"path/filepath"
)

// Validate validates the configuration.
func Validate(cfg *Config) error {
	if err := validateWatcher(&cfg.Watcher); err != nil {
		return err
	}

	if err := validateCompiler(&cfg.Compiler); err != nil {
		return err
	}

	if err := validateStore(&cfg.Store); err != nil {
		return err
	}

	if err := validateServer(&cfg.Server); err != nil {
		return err
	}

	if err := validateLogging(&cfg.Logging); err != nil {
		return err
	}

	return nil
}

func validateWatcher(cfg *WatcherConfig) error {
	switch cfg.Backend {
	case "notify", "fsnotify":
	default:
		return fmt.Errorf("watcher.backend must be notify or fsnotify, got %q", cfg.Backend)
	}
	if cfg.PollIntervalMS < 10 {
		return fmt.Errorf("watcher.poll_interval_ms must be at least 10")
	}
	if cfg.PollIntervalMS > 5000 {
		return fmt.Errorf("watcher.poll_interval_ms cannot exceed 5000ms")
	}
	for _, pattern := range cfg.IgnorePatterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("watcher.ignore_patterns has invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateCompiler(cfg *CompilerConfig) error {
	if cfg.Command == "" {
		return fmt.Errorf("compiler.command cannot be empty")
	}
	if cfg.SourceExt == "" {
		return fmt.Errorf("compiler.source_ext cannot be empty")
	}
	if cfg.TargetExt == "" {
		return fmt.Errorf("compiler.target_ext cannot be empty")
	}
	if cfg.SourceExt == cfg.TargetExt {
		return fmt.Errorf("compiler.source_ext and compiler.target_ext must be different")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("compiler.timeout_seconds cannot be negative")
	}
	return nil
}

func validateStore(cfg *StoreConfig) error {
	switch cfg.Driver {
	case "sqlite", "file":
		if cfg.Path == "" {
			return fmt.Errorf("store.path cannot be empty for driver %s", cfg.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be sqlite, file or memory, got %q", cfg.Driver)
	}
	if cfg.Key == "" {
		return fmt.Errorf("store.key cannot be empty")
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if cfg.Host == "" {
		return fmt.Errorf("server.host cannot be empty")
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error")
	}
	switch cfg.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json")
	}
	if cfg.File != "" && cfg.MaxSizeMB < 1 {
		return fmt.Errorf("logging.max_size_mb must be at least 1 when logging.file is set")
	}
	return nil
}
