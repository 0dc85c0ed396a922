package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a watch event")
	}
	return Event{}
}

func TestWatcherReportsChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hello.lua", "-- v1")
	other := writeFile(t, dir, "other.txt", "ignored")

	w, err := NewWatcher(WithDebounce(20 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := os.WriteFile(other, []byte("still ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("-- v2"), 0o644); err != nil {
		t.Fatal(err)
	}

	ev := waitEvent(t, w)
	abs, _ := filepath.Abs(path)
	if ev.Path != abs {
		t.Errorf("Path = %q, want %q", ev.Path, abs)
	}
	if !ev.Op.Has(OpWrite) && !ev.Op.Has(OpCreate) {
		t.Errorf("Op = %v, want a write", ev.Op)
	}
}

func TestWatcherFileCreatedLater(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgetbus.toml")

	w, err := NewWatcher(WithDebounce(10 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		t.Fatalf("Add of a not-yet-existing file: %v", err)
	}
	writeFile(t, dir, "widgetbus.toml", "version = \"1.0.0\"")

	if ev := waitEvent(t, w); !ev.Op.Has(OpCreate) && !ev.Op.Has(OpWrite) {
		t.Errorf("Op = %v", ev.Op)
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("events channel still open after Close")
	}
	if err := w.Add(filepath.Join(t.TempDir(), "x.toml")); !errors.Is(err, ErrWatcherClosed) {
		t.Errorf("Add after Close = %v, want ErrWatcherClosed", err)
	}
}

func TestOpString(t *testing.T) {
	if got := (OpWrite | OpRename).String(); got != "write|rename" {
		t.Errorf("String() = %q", got)
	}
	if Op(0).String() != "none" {
		t.Error("zero Op should be none")
	}
}
