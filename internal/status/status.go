// Package status holds the single-slot status line shown to the user and
// mirrors every change onto the event hub.
package status

import (
	"errors"
	"fmt"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/domain/ports"
	lsync "github.com/brianly1003/lobo/internal/sync"
	"github.com/rs/zerolog/log"
)

// Line is the latest status message. Each Set overwrites the previous one.
type Line struct {
	mu   lsync.RWMutex
	text string
	hub  ports.EventHub
}

// New creates a status line publishing to hub. A nil hub only logs.
func New(hub ports.EventHub) *Line {
	return &Line{hub: hub}
}

// Set replaces the status text.
func (l *Line) Set(text string) {
	l.mu.Lock()
	l.text = text
	l.mu.Unlock()

	log.Info().Msg(text)
	l.publish(events.NewStatusEvent(text))
}

// Text returns the current status text.
func (l *Line) Text() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.text
}

// CompileStarted reports that output is being regenerated from source.
func (l *Line) CompileStarted(source, output string) {
	l.publish(events.NewCompileStartedEvent(source, output))
	l.Set("Compiling: " + output)
}

// CompileFinished reports the outcome of a compile.
func (l *Line) CompileFinished(source, output string, elapsed time.Duration, err error) {
	l.publish(events.NewCompileFinishedEvent(source, output, elapsed.Milliseconds(), err))
	if err != nil {
		l.Set(fmt.Sprintf("Compile failed: %s: %v", output, err))
		return
	}
	l.Set("Compiled: " + output)
}

// Report surfaces err on the status line. Joined errors are reported one
// by one so each failed directory gets its own message.
func (l *Line) Report(err error) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			l.Report(e)
		}
		return
	}

	var path string
	var subErr *domain.SubscriptionError
	if errors.As(err, &subErr) {
		path = subErr.Path
	}

	log.Warn().Err(err).Str("path", path).Msg("reported error")
	l.publish(events.NewErrorEvent(domain.ErrorCode(err), err.Error(), path))

	l.mu.Lock()
	l.text = "Error: " + err.Error()
	l.mu.Unlock()
	l.publish(events.NewStatusEvent("Error: " + err.Error()))
}

func (l *Line) publish(e events.Event) {
	if l.hub != nil {
		l.hub.Publish(e)
	}
}
