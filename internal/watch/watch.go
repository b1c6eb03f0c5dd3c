// Package watch reports writes to policy and inventory files.
package watch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounceInterval is how long to wait after the last write before notifying.
const debounceInterval = 500 * time.Millisecond

// Watcher delivers debounced change notifications for a set of files.
// It reloads nothing itself: blocklists are re-read on every check, so
// a change notification feeds the audit trail and alerting only.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
	logger   zerolog.Logger
	paths    []string
}

// New creates a watcher for the given paths. Empty and missing paths
// are skipped rather than treated as errors.
func New(paths []string, onChange func(path string), logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	var watched []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
		watched = append(watched, p)
	}

	return &Watcher{
		watcher:  fsw,
		onChange: onChange,
		logger:   logger,
		paths:    watched,
	}, nil
}

// Paths returns the files actually under watch.
func (w *Watcher) Paths() []string {
	out := make([]string, len(w.paths))
	copy(out, w.paths)
	return out
}

// Run watches for file changes and fires the callback once per quiet
// period. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// One timer per path; a write inside the window resets it.
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			path := event.Name
			if t, found := timers[path]; found {
				t.Stop()
			}
			timers[path] = time.AfterFunc(debounceInterval, func() {
				w.onChange(path)
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}
