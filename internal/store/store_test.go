package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brianly1003/lobo/internal/config"
	"github.com/brianly1003/lobo/internal/domain/ports"
)

func openAll(t *testing.T) map[string]func() ports.Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]func() ports.Store{
		"sqlite": func() ports.Store {
			s, err := OpenSQLite(filepath.Join(dir, "lobo.db"))
			if err != nil {
				t.Fatalf("OpenSQLite() error = %v", err)
			}
			return s
		},
		"file": func() ports.Store {
			s, err := OpenFile(filepath.Join(dir, "store.yaml"))
			if err != nil {
				t.Fatalf("OpenFile() error = %v", err)
			}
			return s
		},
	}
}

func TestStores_PersistAcrossReopen(t *testing.T) {
	for name, open := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			if _, ok, err := s.Read("missing"); err != nil || ok {
				t.Fatalf("Read(missing) = ok:%v err:%v, want absent", ok, err)
			}
			if err := s.Write("k", `["/a","/b"]`); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := s.Write("k", `["/b"]`); err != nil {
				t.Fatalf("Write() overwrite error = %v", err)
			}
			if err := s.Flush(); err != nil {
				t.Fatalf("Flush() error = %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			reopened := open()
			defer reopened.Close()
			got, ok, err := reopened.Read("k")
			if err != nil || !ok {
				t.Fatalf("Read(k) after reopen = ok:%v err:%v", ok, err)
			}
			if got != `["/b"]` {
				t.Errorf("Read(k) = %q, want %q", got, `["/b"]`)
			}
		})
	}
}

func TestFile_UnflushedWritesAreLost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	_ = s.Write("k", "v")

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("store file exists before Flush: %v", err)
	}
}

func TestFile_MalformedFileOpensEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	if err := os.WriteFile(path, []byte("watched_directories: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v, want an empty store", err)
	}

	if _, ok, err := s.Read("watched_directories"); err == nil || ok {
		t.Fatalf("Read() = ok %v, err %v; want the parse error", ok, err)
	}

	if err := s.Write("watched_directories", `["/a"]`); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() after rewrite error = %v", err)
	}
	got, ok, err := reopened.Read("watched_directories")
	if err != nil || !ok || got != `["/a"]` {
		t.Fatalf("Read() after rewrite = %q, %v, %v", got, ok, err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	_ = m.Write("k", "v")
	_ = m.Flush()

	if v, ok, _ := m.Read("k"); !ok || v != "v" {
		t.Errorf("Read(k) = %q,%v", v, ok)
	}
	if m.Flushes() != 1 {
		t.Errorf("Flushes() = %d, want 1", m.Flushes())
	}
}

func TestOpen_Drivers(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     config.StoreConfig
		wantErr bool
	}{
		{config.StoreConfig{Driver: "memory"}, false},
		{config.StoreConfig{Driver: "file", Path: filepath.Join(dir, "s.yaml")}, false},
		{config.StoreConfig{Driver: "sqlite", Path: filepath.Join(dir, "s.db")}, false},
		{config.StoreConfig{Driver: "redis"}, true},
	}
	for _, tt := range tests {
		s, err := Open(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%s) error = %v, wantErr %v", tt.cfg.Driver, err, tt.wantErr)
			continue
		}
		if s != nil {
			_ = s.Close()
		}
	}
}
