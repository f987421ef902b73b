package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/testutil"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestHub_StartStop(t *testing.T) {
	h := New()

	if err := h.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !h.IsRunning() {
		t.Error("hub should be running after Start()")
	}
	if err := h.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if h.IsRunning() {
		t.Error("hub should not be running after Stop()")
	}
	if err := h.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	sub := testutil.NewMockSubscriber("test-1")
	h.Subscribe(sub)
	waitFor(t, func() bool { return h.SubscriberCount() == 1 })

	h.Unsubscribe("test-1")
	waitFor(t, func() bool { return h.SubscriberCount() == 0 })

	if !sub.IsClosed() {
		t.Error("subscriber should be closed after unsubscribe")
	}
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	a := testutil.NewMockSubscriber("a")
	b := testutil.NewMockSubscriber("b")
	h.Subscribe(a)
	h.Subscribe(b)
	waitFor(t, func() bool { return h.SubscriberCount() == 2 })

	h.Publish(events.NewStatusEvent("Compiled: site.less"))
	h.Publish(events.NewCompileStartedEvent("/x/a.less", "/x/a.css"))

	if !a.WaitForEvents(2, time.Second) || !b.WaitForEvents(2, time.Second) {
		t.Fatalf("events not delivered: a=%d b=%d", a.EventCount(), b.EventCount())
	}

	got := a.Events()
	if got[0].Type() != events.EventTypeStatus {
		t.Errorf("first event = %s, want %s", got[0].Type(), events.EventTypeStatus)
	}
	if got[1].Type() != events.EventTypeCompileStarted {
		t.Errorf("second event = %s, want %s", got[1].Type(), events.EventTypeCompileStarted)
	}
}

func TestHub_FailingSubscriberIsDropped(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	bad := testutil.NewMockSubscriber("bad")
	bad.SetSendError(errors.New("gone"))
	good := testutil.NewMockSubscriber("good")
	h.Subscribe(bad)
	h.Subscribe(good)
	waitFor(t, func() bool { return h.SubscriberCount() == 2 })

	h.Publish(events.NewStatusEvent("hello"))

	waitFor(t, func() bool { return h.SubscriberCount() == 1 })
	if !bad.IsClosed() {
		t.Error("failing subscriber should be closed")
	}
	if !good.WaitForEvents(1, time.Second) {
		t.Error("healthy subscriber did not receive the event")
	}
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h := New()
	_ = h.Start()

	sub := testutil.NewMockSubscriber("s")
	h.Subscribe(sub)
	waitFor(t, func() bool { return h.SubscriberCount() == 1 })

	_ = h.Stop()

	if !sub.IsClosed() {
		t.Error("subscriber should be closed when the hub stops")
	}
	if h.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", h.SubscriberCount())
	}

	// Subscribe after stop must not block.
	h.Subscribe(testutil.NewMockSubscriber("late"))
}

func TestHub_ConcurrentPublish(t *testing.T) {
	h := New()
	_ = h.Start()
	defer func() { _ = h.Stop() }()

	sub := testutil.NewMockSubscriber("s")
	h.Subscribe(sub)
	waitFor(t, func() bool { return h.SubscriberCount() == 1 })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				h.Publish(events.NewStatusEvent("tick"))
			}
		}()
	}
	wg.Wait()

	if !sub.WaitForEvents(100, 2*time.Second) {
		t.Errorf("received %d events, want 100", sub.EventCount())
	}
}
