// Package session drives the watching loop: it polls the notifier and feeds
// every notification to the dispatcher until stopped.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/rs/zerolog/log"
)

// State is the session state.
type State string

const (
	StateIdle     State = "idle"
	StateWatching State = "watching"
)

// DefaultPollInterval is how long one Poll waits; stop is observed within it.
const DefaultPollInterval = 100 * time.Millisecond

// Registry is the part of the watch registry the session drives.
type Registry interface {
	StartWatching() error
	StopWatching() error
	List() []string
}

// Dispatcher handles a single notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, n ports.Notification) bool
}

// Reporter is the status surface.
type Reporter interface {
	Set(text string)
	Report(err error)
}

// Options configures a session.
type Options struct {
	PollInterval time.Duration
}

// Session is the Idle/Watching state machine.
type Session struct {
	registry     Registry
	notifier     ports.Notifier
	dispatcher   Dispatcher
	status       Reporter
	hub          ports.EventHub
	pollInterval time.Duration

	// mu serializes Start and Stop.
	mu     lsync.Mutex
	state  atomic.Value
	stop   atomic.Bool
	done   chan struct{}
	cancel context.CancelFunc
}

// New creates an idle session. hub may be nil.
func New(registry Registry, notifier ports.Notifier, dispatcher Dispatcher, status Reporter, hub ports.EventHub, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	s := &Session{
		registry:     registry,
		notifier:     notifier,
		dispatcher:   dispatcher,
		status:       status,
		hub:          hub,
		pollInterval: opts.PollInterval,
	}
	s.state.Store(StateIdle)
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state.Load().(State)
}

// IsWatching reports whether the loop is active.
func (s *Session) IsWatching() bool {
	return s.State() == StateWatching
}

// Start subscribes every registered directory and launches the polling
// loop. Per-directory subscription failures are reported to the status
// surface and returned joined; the session is watching regardless. Calling
// Start while watching does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsWatching() {
		return nil
	}

	subErr := s.registry.StartWatching()
	s.status.Report(subErr)

	dirs := s.registry.List()
	failed := domain.FailedPaths(subErr)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.stop.Store(false)
	s.state.Store(StateWatching)

	go s.loop(loopCtx, s.done)

	s.publish(events.NewWatchingStartedEvent(dirs, failed))
	s.status.Set(watchingText(len(dirs) - len(failed)))

	log.Info().
		Int("directories", len(dirs)).
		Int("failed", len(failed)).
		Dur("poll_interval", s.pollInterval).
		Msg("session started")

	return subErr
}

// Stop ends the loop, cancels all subscriptions and drops notifications
// that were still buffered. An in-flight compile finishes first. Calling
// Stop while idle does nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsWatching() {
		return nil
	}

	s.stop.Store(true)
	<-s.done
	s.cancel()

	err := s.registry.StopWatching()
	dropped := s.notifier.Drain()
	s.state.Store(StateIdle)

	s.publish(events.NewWatchingStoppedEvent(s.registry.List()))
	s.status.Set("Stopped watching")

	log.Info().Int("dropped", dropped).Msg("session stopped")
	return err
}

// loop polls until the stop flag is set or ctx ends.
func (s *Session) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		if s.stop.Load() {
			return
		}

		batch, err := s.notifier.Poll(ctx, s.pollInterval)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrNotifierClosed) {
				log.Debug().Err(err).Msg("watch loop exiting")
				return
			}
			log.Warn().Err(err).Msg("poll failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollInterval):
			}
			continue
		}

		for i, n := range batch {
			if s.stop.Load() {
				log.Debug().Int("dropped", len(batch)-i).Msg("stop requested, dropping batch")
				break
			}
			s.dispatcher.Dispatch(ctx, n)
		}
	}
}

func (s *Session) publish(e events.Event) {
	if s.hub != nil {
		s.hub.Publish(e)
	}
}

func watchingText(n int) string {
	if n == 1 {
		return "Watching 1 directory"
	}
	return fmt.Sprintf("Watching %d directories", n)
}
