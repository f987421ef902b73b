package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(cfg *Config) { cfg.Store.Path = "/tmp/lobo.db" },
			wantErr: "",
		},
		{
			name:    "unknown backend",
			mutate:  func(cfg *Config) { cfg.Watcher.Backend = "polling" },
			wantErr: "watcher.backend must be notify or fsnotify",
		},
		{
			name:    "poll interval too small",
			mutate:  func(cfg *Config) { cfg.Watcher.PollIntervalMS = 1 },
			wantErr: "poll_interval_ms must be at least 10",
		},
		{
			name:    "bad ignore pattern",
			mutate:  func(cfg *Config) { cfg.Watcher.IgnorePatterns = []string{"[a-"} },
			wantErr: "invalid pattern",
		},
		{
			name:    "empty compiler command",
			mutate:  func(cfg *Config) { cfg.Compiler.Command = "" },
			wantErr: "compiler.command cannot be empty",
		},
		{
			name: "same extensions",
			mutate: func(cfg *Config) {
				cfg.Compiler.SourceExt = ".css"
				cfg.Compiler.TargetExt = ".css"
			},
			wantErr: "must be different",
		},
		{
			name:    "sqlite without path",
			mutate:  func(cfg *Config) { cfg.Store.Path = "" },
			wantErr: "store.path cannot be empty",
		},
		{
			name: "memory store needs no path",
			mutate: func(cfg *Config) {
				cfg.Store.Driver = "memory"
				cfg.Store.Path = ""
			},
			wantErr: "",
		},
		{
			name:    "port out of range",
			mutate:  func(cfg *Config) { cfg.Store.Path = "/tmp/x"; cfg.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535",
		},
		{
			name:    "bad log level",
			mutate:  func(cfg *Config) { cfg.Store.Path = "/tmp/x"; cfg.Logging.Level = "loud" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
