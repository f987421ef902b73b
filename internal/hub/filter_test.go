package hub

import (
	"testing"

	"github.com/brianly1003/lobo/internal/domain/events"
	"github.com/brianly1003/lobo/internal/testutil"
)

func TestFilteredSubscriber_NoFilterForwardsAll(t *testing.T) {
	inner := testutil.NewMockSubscriber("ws")
	f := NewFilteredSubscriber(inner)

	_ = f.Send(events.NewStatusEvent("a"))
	_ = f.Send(events.NewWatchingStoppedEvent([]string{"/srv/site"}))

	if inner.EventCount() != 2 {
		t.Errorf("forwarded %d events, want 2", inner.EventCount())
	}
}

func TestFilteredSubscriber_SelectedTypes(t *testing.T) {
	inner := testutil.NewMockSubscriber("ws")
	f := NewFilteredSubscriber(inner, events.EventTypeCompileFinished, events.EventTypeCompileFailed)

	_ = f.Send(events.NewStatusEvent("Compiling: a.less"))
	_ = f.Send(events.NewCompileFinishedEvent("/a.less", "/a.css", 12, nil))

	got := inner.Events()
	if len(got) != 1 {
		t.Fatalf("forwarded %d events, want 1", len(got))
	}
	if got[0].Type() != events.EventTypeCompileFinished {
		t.Errorf("forwarded %s, want %s", got[0].Type(), events.EventTypeCompileFinished)
	}
}

func TestFilteredSubscriber_DelegatesIdentity(t *testing.T) {
	inner := testutil.NewMockSubscriber("client-7")
	f := NewFilteredSubscriber(inner)

	if f.ID() != "client-7" {
		t.Errorf("ID() = %q, want client-7", f.ID())
	}
	_ = f.Close()
	if !inner.IsClosed() {
		t.Error("Close should close the inner subscriber")
	}
	select {
	case <-f.Done():
	default:
		t.Error("Done should be closed after Close")
	}
}
