package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianly1003/lobo/internal/config"
	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/brianly1003/lobo/internal/session"
	"github.com/brianly1003/lobo/internal/testutil"
)

func newTestApp(t *testing.T) (*App, *testutil.FakeNotifier, *testutil.RecordingCompiler) {
	t.Helper()

	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Watcher.PollIntervalMS = 10
	cfg.Watcher.AutoStart = false

	n := testutil.NewFakeNotifier()
	c := testutil.NewRecordingCompiler()
	a, err := New(cfg, Options{Version: "test", Notifier: n, Compiler: c})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, n, c
}

func runApp(t *testing.T, a *App) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	waitFor(t, "hub to start", a.Hub().IsRunning)

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(3 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	})
	return cancel
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestApp_AddDirectoryRejectsFile(t *testing.T) {
	a, _, _ := newTestApp(t)
	defer a.Close()

	file := filepath.Join(t.TempDir(), "site.less")
	if err := os.WriteFile(file, []byte("a{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := a.AddDirectory(file)
	if !errors.Is(err, domain.ErrNotDirectory) {
		t.Fatalf("AddDirectory(file) error = %v, want ErrNotDirectory", err)
	}
	if len(a.Directories()) != 0 {
		t.Errorf("Directories() = %v, want empty", a.Directories())
	}
}

func TestApp_AddRemoveWhileIdle(t *testing.T) {
	a, n, _ := newTestApp(t)
	defer a.Close()

	dir := t.TempDir()
	got, err := a.AddDirectory(dir)
	if err != nil {
		t.Fatalf("AddDirectory() error = %v", err)
	}
	if got.Path != dir || !got.Handle.IsZero() {
		t.Errorf("AddDirectory() = %+v, want unsubscribed %s", got, dir)
	}
	if len(n.Active()) != 0 {
		t.Errorf("idle add subscribed %d paths", len(n.Active()))
	}

	removed, err := a.RemoveDirectory(dir)
	if err != nil || removed != dir {
		t.Fatalf("RemoveDirectory() = %q, %v", removed, err)
	}
	if _, err := a.RemoveDirectory(dir); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second RemoveDirectory() error = %v, want ErrNotFound", err)
	}
}

func TestApp_WatchAndCompile(t *testing.T) {
	a, n, c := newTestApp(t)
	runApp(t, a)

	dir := t.TempDir()
	if _, err := a.AddDirectory(dir); err != nil {
		t.Fatalf("AddDirectory() error = %v", err)
	}
	if err := a.StartWatching(); err != nil {
		t.Fatalf("StartWatching() error = %v", err)
	}
	if a.State() != session.StateWatching {
		t.Fatalf("State() = %s, want watching", a.State())
	}

	if !n.EmitFor(dir, filepath.Join(dir, "main.less"), ports.OpCloseWrite) {
		t.Fatal("no subscription for dir")
	}
	waitFor(t, "compile", func() bool { return c.Count() == 1 })

	call := c.Calls()[0]
	if call.Output != filepath.Join(dir, "main.css") {
		t.Errorf("output = %s", call.Output)
	}
	waitFor(t, "status", func() bool { return a.StatusText() == "Compiled: "+call.Output })

	if _, err := a.AddDirectory(dir); !errors.Is(err, domain.ErrAlreadyWatched) {
		t.Errorf("re-add while watching error = %v, want ErrAlreadyWatched", err)
	}

	if err := a.StopWatching(); err != nil {
		t.Fatalf("StopWatching() error = %v", err)
	}
	if a.State() != session.StateIdle {
		t.Errorf("State() = %s, want idle", a.State())
	}
	if len(n.Active()) != 0 {
		t.Errorf("%d subscriptions left after stop", len(n.Active()))
	}
}

func TestApp_AutoStart(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Watcher.PollIntervalMS = 10

	n := testutil.NewFakeNotifier()
	a, err := New(cfg, Options{Notifier: n, Compiler: testutil.NewRecordingCompiler()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := a.AddDirectory(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	cancel := runApp(t, a)
	waitFor(t, "watching", func() bool { return a.State() == session.StateWatching })
	if len(n.Active()) != 1 {
		t.Errorf("Active() = %d, want 1", len(n.Active()))
	}

	cancel()
	waitFor(t, "idle", func() bool { return a.State() == session.StateIdle })
}

func TestApp_CompileFile(t *testing.T) {
	a, _, c := newTestApp(t)
	defer a.Close()

	out, err := a.CompileFile(context.Background(), "/tmp/site/theme.less")
	if err != nil {
		t.Fatalf("CompileFile() error = %v", err)
	}
	if out != "/tmp/site/theme.css" {
		t.Errorf("output = %s", out)
	}
	if c.Count() != 1 {
		t.Errorf("Count() = %d", c.Count())
	}

	if _, err := a.CompileFile(context.Background(), "/tmp/site/theme.scss"); !errors.Is(err, domain.ErrInvalidPath) {
		t.Errorf("CompileFile(.scss) error = %v, want ErrInvalidPath", err)
	}

	c.SetError(errors.New("boom"))
	if _, err := a.CompileFile(context.Background(), "/tmp/site/theme.less"); err == nil {
		t.Error("expected compile error")
	}
}

func TestApp_RunTwice(t *testing.T) {
	a, _, _ := newTestApp(t)
	runApp(t, a)

	if err := a.Run(context.Background()); err == nil {
		t.Error("second Run() should fail")
	}
	if err := a.Close(); err == nil {
		t.Error("Close() while running should fail")
	}
}

func TestApp_MalformedFileStoreStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.yaml")
	if err := os.WriteFile(storePath, []byte("watched_directories: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Store.Driver = "file"
	cfg.Store.Path = storePath
	cfg.Watcher.AutoStart = false

	a, err := New(cfg, Options{
		Version:  "test",
		Notifier: testutil.NewFakeNotifier(),
		Compiler: testutil.NewRecordingCompiler(),
	})
	if err != nil {
		t.Fatalf("New() with a malformed store file error = %v", err)
	}

	if got := a.Directories(); len(got) != 0 {
		t.Errorf("Directories() = %v, want empty", got)
	}
	if got := a.StatusText(); !strings.HasPrefix(got, "Error:") {
		t.Errorf("StatusText() = %q, want an Error: line", got)
	}

	site := t.TempDir()
	if _, err := a.AddDirectory(site); err != nil {
		t.Fatalf("AddDirectory() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(storePath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), site) {
		t.Errorf("store file after AddDirectory = %q, want it to list %s", data, site)
	}
}
