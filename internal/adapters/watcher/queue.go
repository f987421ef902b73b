package watcher

import (
	"context"
	"time"

	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

const queueSize = 1024

// queue buffers notifications between backend goroutines and Poll.
type queue struct {
	ch chan ports.Notification
}

func newQueue() *queue {
	return &queue{ch: make(chan ports.Notification, queueSize)}
}

// push enqueues n without blocking; a full queue drops the notification.
func (q *queue) push(n ports.Notification) {
	select {
	case q.ch <- n:
	default:
		log.Warn().
			Str("path", n.Path).
			Str("op", n.Op.String()).
			Msg("notification dropped: queue full")
	}
}

// poll waits up to timeout for the first notification, then returns it
// together with everything else already buffered.
func (q *queue) poll(ctx context.Context, timeout time.Duration) ([]ports.Notification, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var batch []ports.Notification
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case n := <-q.ch:
		batch = append(batch, n)
	}

	for {
		select {
		case n := <-q.ch:
			batch = append(batch, n)
		default:
			return batch, nil
		}
	}
}

// drain discards everything buffered.
func (q *queue) drain() int {
	dropped := 0
	for {
		select {
		case <-q.ch:
			dropped++
		default:
			return dropped
		}
	}
}
