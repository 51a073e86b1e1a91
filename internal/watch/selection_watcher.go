// Package watch turns external signals (file edits, a clock) into
// coordinator operations for the watch command.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/pricewatch/internal/catalog"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// DefaultSettle coalesces the burst of events an editor produces for one save.
const DefaultSettle = 50 * time.Millisecond

// ChangeFunc receives each reloaded snapshot. nil means the selection was
// removed or emptied.
type ChangeFunc func(cfg *pricing.Configuration)

// SelectionWatcher reloads a configuration snapshot file whenever it changes.
type SelectionWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange ChangeFunc
	settle   time.Duration
	logger   *slog.Logger
}

// WatcherOptions configures a SelectionWatcher.
type WatcherOptions struct {
	// Settle is the quiet period after the last file event. Defaults to DefaultSettle.
	Settle time.Duration
	Logger *slog.Logger
}

// NewSelectionWatcher creates a watcher for path. It does not emit until Run.
func NewSelectionWatcher(path string, onChange ChangeFunc, opts WatcherOptions) (*SelectionWatcher, error) {
	if onChange == nil {
		return nil, ferrors.ValidationError("change callback is required").Build()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to resolve selection path").
			WithContext("path", path).
			Build()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to create file watcher").Build()
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SelectionWatcher{
		path:     absPath,
		watcher:  watcher,
		onChange: onChange,
		settle:   opts.Settle,
		logger:   opts.Logger.With(logfields.Path(absPath)),
	}, nil
}

// Path returns the absolute path being watched.
func (w *SelectionWatcher) Path() string { return w.path }

// Run watches until ctx is canceled, then closes the underlying watcher.
func (w *SelectionWatcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()

	// Watching the directory survives editors that replace the file on save.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to watch selection directory").
			WithContext("dir", dir).
			Build()
	}
	w.logger.Info("Watching selection file")

	name := filepath.Base(w.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
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
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("Selection file event", slog.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Selection watcher error", logfields.Error(err))
		}
	}
}

// reload reads the file and forwards the snapshot. A missing file clears the
// selection; a malformed one is logged and ignored so the last good
// configuration stays priced.
func (w *SelectionWatcher) reload() {
	cfg, err := catalog.LoadSelection(w.path)
	switch {
	case err == nil:
	case ferrors.HasCategory(err, ferrors.CategoryNotFound):
		w.logger.Info("Selection file removed")
		cfg = nil
	default:
		w.logger.Warn("Ignoring unreadable selection", logfields.Error(err))
		return
	}
	if cfg != nil {
		w.logger.Debug("Selection reloaded", logfields.Digest(pricing.Digest(*cfg)))
	}
	w.onChange(cfg)
}
