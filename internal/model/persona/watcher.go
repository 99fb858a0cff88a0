package persona

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// ErrPersonaRemoved rejects a reload that would orphan sessions bound to an id.
var ErrPersonaRemoved = errors.New("reload removes personas in use")

// MissingIDs lists ids of current that next no longer contains, in catalog order.
func MissingIDs(current, next []Persona) []string {
	keep := make(map[string]struct{}, len(next))
	for _, p := range next {
		keep[p.ID] = struct{}{}
	}
	var missing []string
	for _, p := range current {
		if _, ok := keep[p.ID]; !ok {
			missing = append(missing, p.ID)
		}
	}
	return missing
}

// Watcher reloads a catalog file into a MemoryStore whenever it changes.
// A file that fails to load, or that drops an id the current catalog has,
// leaves the current catalog in place: live sessions may be bound to any id.
type Watcher struct {
	Path     string
	Store    *MemoryStore
	Logger   *zap.Logger
	Debounce time.Duration
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file so editors that save by rename are picked up.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("persona-watcher")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	target, err := filepath.Abs(w.Path)
	if err != nil {
		return fmt.Errorf("resolve persona catalog path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create persona catalog watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	logger.Info("watching persona catalog", zap.String("path", target))

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))

		case <-timer.C:
			items, err := LoadFile(target)
			if err != nil {
				logger.Warn("persona catalog reload rejected", zap.Error(err))
				continue
			}
			if missing := MissingIDs(w.Store.List(), items); len(missing) > 0 {
				logger.Warn("persona catalog reload rejected",
					zap.Error(fmt.Errorf("%w: %s", ErrPersonaRemoved, strings.Join(missing, ", "))))
				continue
			}
			w.Store.Replace(items)
			logger.Info("persona catalog reloaded", zap.Int("count", len(items)))
		}
	}
}
