// Package app wires lobo's components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/brianly1003/lobo/internal/adapters/compiler"
	"github.com/brianly1003/lobo/internal/adapters/watcher"
	"github.com/brianly1003/lobo/internal/config"
	"github.com/brianly1003/lobo/internal/dispatch"
	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/hub"
	"github.com/brianly1003/lobo/internal/registry"
	httpserver "github.com/brianly1003/lobo/internal/server/http"
	"github.com/brianly1003/lobo/internal/session"
	"github.com/brianly1003/lobo/internal/status"
	"github.com/brianly1003/lobo/internal/store"
	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/rs/zerolog/log"
)

// Options adjusts how the application is assembled.
type Options struct {
	Version string

	// Console receives status lines while running. Nil disables them.
	Console io.Writer

	// Logger is handed to the HTTP server.
	Logger *slog.Logger

	// Ephemeral keeps the watch list in memory only.
	Ephemeral bool

	// NoWatch overrides watcher.auto_start.
	NoWatch bool

	// Notifier and Compiler replace the configured backends. Used in tests.
	Notifier ports.Notifier
	Compiler ports.Compiler
}

// App is the main application struct that orchestrates all components.
type App struct {
	cfg  *config.Config
	opts Options

	hub        *hub.Hub
	store      ports.Store
	notifier   ports.Notifier
	registry   *registry.Registry
	status     *status.Line
	compiler   ports.Compiler
	dispatcher *dispatch.Dispatcher
	session    *session.Session
	httpServer *httpserver.Server
	console    *status.Console

	mu        lsync.RWMutex
	ctx       context.Context
	running   bool
	startTime time.Time
}

// New assembles the application and restores the persisted watch list.
// Nothing is watched until Run or StartWatching.
func New(cfg *config.Config, opts Options) (*App, error) {
	storeCfg := cfg.Store
	if opts.Ephemeral {
		storeCfg.Driver = "memory"
	}

	st, err := store.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier, err = watcher.New(watcher.Options{
			Backend:        cfg.Watcher.Backend,
			IgnorePatterns: cfg.Watcher.IgnorePatterns,
		})
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("failed to create watcher: %w", err)
		}
	}

	comp := opts.Compiler
	if comp == nil {
		comp = compiler.New(compiler.Options{
			Command: cfg.Compiler.Command,
			Args:    cfg.Compiler.Args,
			Timeout: cfg.Compiler.Timeout(),
		})
	}

	a := &App{
		cfg:      cfg,
		opts:     opts,
		hub:      hub.New(),
		store:    st,
		notifier: notifier,
		compiler: comp,
		ctx:      context.Background(),
	}

	a.status = status.New(a.hub)
	a.registry = registry.New(notifier, st, registry.Options{
		Key:       cfg.Store.Key,
		Mask:      ports.OpCloseWrite,
		Recursive: cfg.Watcher.Recursive,
	})
	a.dispatcher = dispatch.New(a.registry, comp, a.status, dispatch.Options{
		SourceExt: cfg.Compiler.SourceExt,
		TargetExt: cfg.Compiler.TargetExt,
	})
	a.session = session.New(a.registry, notifier, a.dispatcher, a.status, a.hub, session.Options{
		PollInterval: cfg.Watcher.PollInterval(),
	})

	if err := a.registry.Load(); err != nil {
		if registry.IsAbsent(err) {
			log.Debug().Str("key", cfg.Store.Key).Msg("no saved watch list")
		} else {
			log.Warn().Err(err).Msg("saved watch list is unreadable, starting empty")
			a.status.Report(err)
		}
	}

	return a, nil
}

// Run starts the hub, the optional HTTP server and, unless disabled, the
// watching session. It blocks until ctx is cancelled and then shuts down.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("application is already running")
	}
	a.running = true
	a.ctx = ctx
	a.startTime = time.Now()
	a.mu.Unlock()

	if err := a.hub.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}

	a.hub.Subscribe(hub.NewFuncSubscriber("internal-logger", func(event events.Event) {
		log.Trace().
			Str("event_type", string(event.Type())).
			Time("timestamp", event.Timestamp()).
			Msg("event broadcast")
	}))
	if a.opts.Console != nil {
		a.console = status.NewConsole(a.opts.Console)
		a.hub.Subscribe(a.console.Subscriber())
	}

	if a.cfg.Server.Enabled {
		a.httpServer = httpserver.New(a.cfg.Server.Host, a.cfg.Server.Port, a, a.hub, a.opts.Logger)
		a.httpServer.AllowOrigins(a.cfg.Server.AllowedOrigins)
		if err := a.httpServer.Start(); err != nil {
			a.shutdown()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	log.Info().
		Int("directories", a.registry.Len()).
		Str("compiler", a.cfg.Compiler.Command).
		Str("backend", a.cfg.Watcher.Backend).
		Bool("server", a.cfg.Server.Enabled).
		Msg("lobo started")

	if a.cfg.Watcher.AutoStart && !a.opts.NoWatch {
		// Subscription failures are already on the status line.
		_ = a.session.Start(ctx)
	} else {
		a.status.Set("Idle")
	}

	<-ctx.Done()

	a.shutdown()
	return nil
}

// shutdown stops watching and releases every resource. Handles are
// cancelled but the persisted list is kept for the next launch.
func (a *App) shutdown() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.mu.Unlock()

	log.Info().Dur("uptime", time.Since(a.startTime)).Msg("shutting down...")

	if err := a.session.Stop(); err != nil {
		log.Warn().Err(err).Msg("error stopping session")
	}

	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.httpServer.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("error stopping HTTP server")
		}
		cancel()
	}

	if err := a.hub.Stop(); err != nil {
		log.Error().Err(err).Msg("error stopping event hub")
	}
	if a.console != nil {
		_ = a.console.Close()
	}

	a.close()
}

// Close releases the store and the notifier. Use it when the app was built
// for a one-off command and Run was never called.
func (a *App) Close() error {
	a.mu.RLock()
	running := a.running
	a.mu.RUnlock()
	if running {
		return fmt.Errorf("application is running")
	}
	return a.close()
}

func (a *App) close() error {
	if err := a.registry.Close(); err != nil {
		log.Warn().Err(err).Msg("error cancelling subscriptions")
	}
	if err := a.notifier.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing watcher")
	}
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// AddDirectory registers path, subscribing it right away when watching.
func (a *App) AddDirectory(path string) (registry.WatchedDirectory, error) {
	norm, err := registry.NormalizePath(path)
	if err != nil {
		return registry.WatchedDirectory{}, err
	}
	if info, statErr := os.Stat(norm); statErr == nil && !info.IsDir() {
		return registry.WatchedDirectory{Path: norm}, fmt.Errorf("%s: %w", norm, domain.ErrNotDirectory)
	}

	norm, err = a.registry.Add(norm)
	dir := a.entry(norm)
	if err == nil || domain.FailedPaths(err) != nil {
		a.hub.Publish(events.NewDirectoryAddedEvent(norm, !dir.Handle.IsZero()))
	}
	if err != nil {
		a.status.Report(err)
	}
	return dir, err
}

// RemoveDirectory unregisters path and cancels its subscription.
func (a *App) RemoveDirectory(path string) (string, error) {
	removed, err := a.registry.Remove(path)
	if removed == "" || errors.Is(err, domain.ErrNotFound) {
		return removed, err
	}

	// Any other error came from unsubscribing or persisting; the entry is gone.
	a.hub.Publish(events.NewDirectoryRemovedEvent(removed))
	if err != nil {
		a.status.Report(err)
	}
	return removed, err
}

// Directories returns every registered directory.
func (a *App) Directories() []registry.WatchedDirectory {
	return a.registry.Entries()
}

// StartWatching starts the session.
func (a *App) StartWatching() error {
	a.mu.RLock()
	ctx := a.ctx
	a.mu.RUnlock()
	return a.session.Start(ctx)
}

// StopWatching stops the session.
func (a *App) StopWatching() error {
	return a.session.Stop()
}

// State returns the session state.
func (a *App) State() session.State {
	return a.session.State()
}

// StatusText returns the status line.
func (a *App) StatusText() string {
	return a.status.Text()
}

// Version returns the build version.
func (a *App) Version() string {
	return a.opts.Version
}

// CompileFile compiles a single source file outside of watching.
func (a *App) CompileFile(ctx context.Context, path string) (string, error) {
	source, err := registry.NormalizePath(path)
	if err != nil {
		return "", err
	}
	output, ok := dispatch.OutputPath(source, a.cfg.Compiler.SourceExt, a.cfg.Compiler.TargetExt)
	if !ok {
		return "", fmt.Errorf("%w: %s does not end in %s", domain.ErrInvalidPath, source, a.cfg.Compiler.SourceExt)
	}
	return output, a.dispatcher.Compile(ctx, source, output)
}

// Registry exposes the watch registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Hub exposes the event hub.
func (a *App) Hub() *hub.Hub {
	return a.hub
}

// Config returns the configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

func (a *App) entry(path string) registry.WatchedDirectory {
	for _, e := range a.registry.Entries() {
		if e.Path == path {
			return e
		}
	}
	return registry.WatchedDirectory{Path: path}
}

var _ httpserver.Controller = (*App)(nil)
