package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/brianly1003/lobo/internal/app"
	"github.com/brianly1003/lobo/internal/config"
	"github.com/lmittmann/tint"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	startNoWatch   bool
	startServer    bool
	startPort      int
	startEphemeral bool
	startQuiet     bool
)

// startCmd represents the start command.
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Watch the registered directories and compile on save",
	Long: `Start watching every registered directory. Each .less file that is
written and closed is compiled to the .css file next to it.

Press Ctrl+C to stop. Subscriptions are cancelled on exit but the directory
list is kept for the next run.

Example:
  lobo start                   # Watch and compile
  lobo start --no-watch        # Start idle, control it over HTTP
  lobo start --server          # Also serve the HTTP API and /ws
  lobo start --server --port 9000`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startNoWatch, "no-watch", false, "do not start watching automatically")
	startCmd.Flags().BoolVar(&startServer, "server", false, "serve the HTTP API and WebSocket stream")
	startCmd.Flags().IntVar(&startPort, "port", 0, "server port (default: 8767)")
	startCmd.Flags().BoolVar(&startEphemeral, "ephemeral", false, "keep the directory list in memory only")
	startCmd.Flags().BoolVarP(&startQuiet, "quiet", "q", false, "do not print status lines")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if startServer {
		cfg.Server.Enabled = true
	}
	if startPort != 0 {
		cfg.Server.Port = startPort
	}

	// Re-validate after overrides
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closer := setupLogging(cfg)
	defer func() { _ = closer.Close() }()

	log.Info().
		Str("version", version).
		Str("store", cfg.Store.Path).
		Bool("server", cfg.Server.Enabled).
		Msg("starting lobo")

	opts := app.Options{
		Version:   version,
		Logger:    newServerLogger(cfg),
		Ephemeral: startEphemeral,
		NoWatch:   startNoWatch,
	}
	if !startQuiet {
		opts.Console = cmd.OutOrStdout()
	}

	application, err := app.New(cfg, opts)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if cfg.Server.Enabled {
		fmt.Fprintf(cmd.OutOrStdout(), "HTTP API:  %s\nWebSocket: %s/ws\n", cfg.Server.BaseURL(), wsURL(cfg.Server.BaseURL()))
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("application error: %w", err)
	}

	log.Info().Msg("lobo stopped")
	return nil
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// setupLogging configures the global zerolog logger. The returned closer
// releases the log file, if any.
func setupLogging(cfg *config.Config) io.Closer {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if cfg.Logging.Format == "console" || verbose {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	if cfg.Logging.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.Logging.File,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return closer
}

// newServerLogger builds the slog logger used by the HTTP server.
func newServerLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// wsURL converts an http(s) base URL to its ws(s) form.
func wsURL(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasPrefix(baseURL, "https://") {
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	}
	if strings.HasPrefix(baseURL, "http://") {
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	}
	return baseURL
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
