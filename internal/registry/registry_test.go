package registry

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/store"
	"github.com/brianly1003/lobo/internal/testutil"
)

const testKey = "watched_directories"

func newTestRegistry(t *testing.T) (*Registry, *testutil.FakeNotifier, *store.Memory) {
	t.Helper()
	n := testutil.NewFakeNotifier()
	s := store.NewMemory()
	r := New(n, s, Options{Key: testKey, Recursive: true})
	return r, n, s
}

func TestAdd_PersistsImmediately(t *testing.T) {
	r, _, s := newTestRegistry(t)

	if _, err := r.Add("/a"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if _, err := r.Add("/b"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	raw, ok, _ := s.Read(testKey)
	if !ok {
		t.Fatal("watch list was not persisted")
	}
	if raw != `["/a","/b"]` {
		t.Errorf("persisted = %s, want [\"/a\",\"/b\"]", raw)
	}
	if s.Flushes() != 2 {
		t.Errorf("Flushes() = %d, want 2", s.Flushes())
	}
}

func TestAdd_IdempotentWhileIdle(t *testing.T) {
	r, n, _ := newTestRegistry(t)

	_, _ = r.Add("/a")
	if _, err := r.Add("/a"); err != nil {
		t.Fatalf("second Add() while idle error = %v", err)
	}

	if got := r.List(); !reflect.DeepEqual(got, []string{"/a"}) {
		t.Errorf("List() = %v, want [/a]", got)
	}
	if len(n.Active()) != 0 {
		t.Errorf("idle Add subscribed %d paths, want 0", len(n.Active()))
	}
}

func TestAdd_AlreadyWatched(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, _ = r.Add("/a")
	_ = r.StartWatching()

	_, err := r.Add("/a")
	if !errors.Is(err, domain.ErrAlreadyWatched) {
		t.Errorf("Add() = %v, want ErrAlreadyWatched", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}

func TestAdd_WhileWatchingSubscribes(t *testing.T) {
	r, n, _ := newTestRegistry(t)
	_ = r.StartWatching()

	if _, err := r.Add("/a"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	entries := r.Entries()
	if len(entries) != 1 || entries[0].Handle.IsZero() {
		t.Fatalf("Entries() = %+v, want /a with a handle", entries)
	}

	sub := n.Active()[entries[0].Handle]
	if sub.Path != "/a" || !sub.Recursive || sub.Mask != ports.OpCloseWrite {
		t.Errorf("subscription = %+v, want recursive close-write on /a", sub)
	}
}

func TestAdd_SubscriptionFailureKeepsPath(t *testing.T) {
	r, n, s := newTestRegistry(t)
	n.FailPath("/missing", errors.New("no such file or directory"))
	_ = r.StartWatching()

	_, err := r.Add("/missing")

	var subErr *domain.SubscriptionError
	if !errors.As(err, &subErr) {
		t.Fatalf("Add() = %v, want SubscriptionError", err)
	}
	if subErr.Path != "/missing" {
		t.Errorf("SubscriptionError.Path = %q, want /missing", subErr.Path)
	}
	if !r.Contains("/missing") {
		t.Error("path should stay registered after a subscription failure")
	}
	if raw, _, _ := s.Read(testKey); raw != `["/missing"]` {
		t.Errorf("persisted = %s, want [\"/missing\"]", raw)
	}

	// Re-adding retries the subscription once the path is usable.
	n.FailPath("/missing", nil)
	if _, err := r.Add("/missing"); err != nil {
		t.Fatalf("retry Add() error = %v", err)
	}
	if r.Entries()[0].Handle.IsZero() {
		t.Error("retry should attach a handle")
	}
}

func TestAdd_InvalidPath(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	if _, err := r.Add("   "); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("Add(blank) = %v, want ErrInvalidPath", err)
	}
}

func TestAdd_NormalizesPath(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, _ = r.Add("/a/b/../c/")
	_, _ = r.Add("/a/c")

	if got := r.List(); !reflect.DeepEqual(got, []string{"/a/c"}) {
		t.Errorf("List() = %v, want [/a/c]", got)
	}
}

func TestRemove_Unknown(t *testing.T) {
	r, _, s := newTestRegistry(t)
	_, _ = r.Add("/a")
	before, _, _ := s.Read(testKey)

	_, err := r.Remove("/nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Remove() = %v, want ErrNotFound", err)
	}
	if got := r.List(); !reflect.DeepEqual(got, []string{"/a"}) {
		t.Errorf("List() = %v, want [/a]", got)
	}
	if after, _, _ := s.Read(testKey); after != before {
		t.Errorf("persisted list changed: %s -> %s", before, after)
	}
}

func TestRemove_CancelsSubscription(t *testing.T) {
	r, n, s := newTestRegistry(t)
	_, _ = r.Add("/a")
	_, _ = r.Add("/b")
	_ = r.StartWatching()

	h, _ := n.HandleFor("/a")
	if _, err := r.Remove("/a"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if r.Owns(h) {
		t.Error("removed directory's handle should not be owned")
	}
	if _, ok := n.Active()[h]; ok {
		t.Error("subscription should be cancelled")
	}
	if raw, _, _ := s.Read(testKey); raw != `["/b"]` {
		t.Errorf("persisted = %s, want [\"/b\"]", raw)
	}
}

func TestUniquenessUnderRandomOps(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	paths := []string{"/a", "/b", "/c", "/d"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		p := paths[rng.Intn(len(paths))]
		switch rng.Intn(4) {
		case 0, 1:
			_, _ = r.Add(p)
		case 2:
			_, _ = r.Remove(p)
		case 3:
			if r.IsWatching() {
				_ = r.StopWatching()
			} else {
				_ = r.StartWatching()
			}
		}

		seen := make(map[string]bool)
		for _, got := range r.List() {
			if seen[got] {
				t.Fatalf("step %d: %s registered twice: %v", i, got, r.List())
			}
			seen[got] = true
		}
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	r, n, _ := newTestRegistry(t)
	_, _ = r.Add("/a")
	_, _ = r.Add("/b")

	_ = r.StartWatching()
	_ = r.StartWatching()

	if len(n.Active()) != 2 {
		t.Errorf("active subscriptions = %d, want 2", len(n.Active()))
	}

	_ = r.StopWatching()
	_ = r.StopWatching()

	for _, e := range r.Entries() {
		if !e.Handle.IsZero() {
			t.Errorf("%s still has handle %q after stop", e.Path, e.Handle)
		}
	}
	if len(n.Active()) != 0 {
		t.Errorf("active subscriptions = %d, want 0", len(n.Active()))
	}
	if r.IsWatching() {
		t.Error("IsWatching() = true after stop")
	}
}

func TestStartWatching_CollectsFailures(t *testing.T) {
	r, n, _ := newTestRegistry(t)
	_, _ = r.Add("/a")
	_, _ = r.Add("/bad")
	_, _ = r.Add("/c")
	n.FailPath("/bad", errors.New("permission denied"))

	err := r.StartWatching()

	var subErr *domain.SubscriptionError
	if !errors.As(err, &subErr) || subErr.Path != "/bad" {
		t.Fatalf("StartWatching() = %v, want SubscriptionError for /bad", err)
	}

	for _, e := range r.Entries() {
		wantHandle := e.Path != "/bad"
		if e.Handle.IsZero() == wantHandle {
			t.Errorf("%s handle = %q, want handle=%v", e.Path, e.Handle, wantHandle)
		}
	}
}

func TestStartStopStart_ExactSet(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, _ = r.Add("/a")
	_, _ = r.Add("/b")

	_ = r.StartWatching()
	_ = r.StopWatching()
	if err := r.StartWatching(); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() = %+v, want 2 entries", entries)
	}
	for i, want := range []string{"/a", "/b"} {
		if entries[i].Path != want {
			t.Errorf("entry %d = %s, want %s", i, entries[i].Path, want)
		}
		if entries[i].Handle.IsZero() {
			t.Errorf("%s has no handle", want)
		}
	}
}

func TestOwns(t *testing.T) {
	r, n, _ := newTestRegistry(t)
	_, _ = r.Add("/a")
	_ = r.StartWatching()

	h, _ := n.HandleFor("/a")

	tests := []struct {
		name string
		h    ports.Handle
		want bool
	}{
		{"live handle", h, true},
		{"empty handle", "", false},
		{"unknown handle", "fake-999", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Owns(tt.h); got != tt.want {
				t.Errorf("Owns(%q) = %v, want %v", tt.h, got, tt.want)
			}
		})
	}

	_ = r.StopWatching()
	if r.Owns(h) {
		t.Error("handle should not be owned after stop")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	r, n, s := newTestRegistry(t)
	for _, p := range []string{"/z", "/a", "/m"} {
		_, _ = r.Add(p)
	}

	reloaded := New(n, s, Options{Key: testKey})
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := reloaded.List(), []string{"/z", "/a", "/m"}; !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
	for _, e := range reloaded.Entries() {
		if !e.Handle.IsZero() {
			t.Errorf("%s loaded with handle %q", e.Path, e.Handle)
		}
	}
}

func TestLoad_FailuresYieldEmptyList(t *testing.T) {
	tests := []struct {
		name   string
		store  func() ports.Store
		absent bool
	}{
		{
			name:   "absent key",
			store:  func() ports.Store { return store.NewMemory() },
			absent: true,
		},
		{
			name: "malformed json",
			store: func() ports.Store {
				m := store.NewMemory()
				_ = m.Write(testKey, "{not json")
				return m
			},
		},
		{
			name: "wrong shape",
			store: func() ports.Store {
				m := store.NewMemory()
				_ = m.Write(testKey, `{"paths":["/a"]}`)
				return m
			},
		},
		{
			name:  "store error",
			store: func() ports.Store { return testutil.BrokenStore{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(testutil.NewFakeNotifier(), tt.store(), Options{Key: testKey})

			err := r.Load()

			var readErr *domain.PersistenceReadError
			if !errors.As(err, &readErr) {
				t.Fatalf("Load() = %v, want PersistenceReadError", err)
			}
			if IsAbsent(err) != tt.absent {
				t.Errorf("IsAbsent() = %v, want %v", IsAbsent(err), tt.absent)
			}
			if r.Len() != 0 {
				t.Errorf("Len() = %d, want 0", r.Len())
			}
		})
	}
}

func TestLoad_DropsDuplicates(t *testing.T) {
	s := store.NewMemory()
	_ = s.Write(testKey, `["/a","/b","/a"]`)

	r := New(testutil.NewFakeNotifier(), s, Options{Key: testKey})
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := r.List(); !reflect.DeepEqual(got, []string{"/a", "/b"}) {
		t.Errorf("List() = %v, want [/a /b]", got)
	}
}

func TestAdd_PersistFailureReported(t *testing.T) {
	r := New(testutil.NewFakeNotifier(), testutil.BrokenStore{}, Options{Key: testKey})

	_, err := r.Add("/a")
	if !errors.Is(err, testutil.ErrStoreBroken) {
		t.Errorf("Add() = %v, want ErrStoreBroken", err)
	}
	if !r.Contains("/a") {
		t.Error("in-memory registration should survive a persistence failure")
	}
}

func TestClose_KeepsPersistedList(t *testing.T) {
	r, n, s := newTestRegistry(t)
	_, _ = r.Add("/a")
	_ = r.StartWatching()

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if len(n.Active()) != 0 {
		t.Error("Close should cancel subscriptions")
	}
	if raw, _, _ := s.Read(testKey); raw != `["/a"]` {
		t.Errorf("persisted = %s, want [\"/a\"]", raw)
	}
}
