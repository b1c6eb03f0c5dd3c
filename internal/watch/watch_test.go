package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewSkipsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "block.cmd")
	if err := os.WriteFile(present, []byte("request system reboot\n"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := New([]string{present, filepath.Join(dir, "missing.cfg"), ""}, func(string) {}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	got := w.Paths()
	if len(got) != 1 {
		t.Fatalf("expected 1 watched path, got %d: %v", len(got), got)
	}
	if got[0] != present {
		t.Errorf("got path %q, want %q", got[0], present)
	}
}

func TestWatcherNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "block.cfg")
	if err := os.WriteFile(path, []byte("set system services telnet\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var received []string

	w, err := New([]string{path}, func(p string) {
		mu.Lock()
		received = append(received, p)
		mu.Unlock()
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx) }()

	// Give watcher time to start.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("set system services telnet\ndelete security\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// Wait for debounce to elapse.
	time.Sleep(debounceInterval + 500*time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if len(received) == 0 {
		t.Fatal("expected a change notification, got none")
	}
	if received[0] != path {
		t.Errorf("got path %q, want %q", received[0], path)
	}
}

func TestWatcherDebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "block.cmd")
	if err := os.WriteFile(path, []byte("request system reboot\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var count int

	w, err := New([]string{path}, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	// Burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("request system reboot\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(debounceInterval + 500*time.Millisecond)
	cancel()

	mu.Lock()
	defer mu.Unlock()
	if count == 0 {
		t.Fatal("expected at least one notification")
	}
	if count >= 5 {
		t.Errorf("expected writes to coalesce, got %d notifications for 5 writes", count)
	}
}

func TestWatcherContextCancellation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "block.cfg")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatal(err)
	}

	w, err := New([]string{path}, func(string) {}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestNewAllPathsMissing(t *testing.T) {
	w, err := New([]string{"/nonexistent/block.cfg"}, func(string) {}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer w.watcher.Close()

	if len(w.Paths()) != 0 {
		t.Errorf("expected no watched paths, got %v", w.Paths())
	}
}
