// Package watch turns file-system activity in the VRChat log directory into
// debounced sync triggers.
//
// VRChat appends to its current log file continuously while running, so raw
// fsnotify events arrive in bursts; the watcher coalesces a burst into one
// trigger after a quiet period. The trigger callback owns coalescing with
// any sync already in flight.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last write before firing.
const DefaultDebounce = 2 * time.Second

// Watcher debounces log-directory changes into trigger callbacks.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	trigger  func()
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for the Watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a Watcher over dir. trigger is invoked from the watch
// goroutine after each debounced burst of log-file activity.
func New(dir string, trigger func(), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		trigger:  trigger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Returns the fsnotify setup error, or
// nil on clean shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	w.logger.Info("watching log directory", "dir", w.dir)

	// The timer starts stopped; each relevant event rearms it.
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			w.logger.Debug("log activity settled, triggering sync")
			w.trigger()
		}
	}
}

// relevant reports whether the event concerns a VRChat log file write.
func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	matched, err := filepath.Match("output_log_*.txt", filepath.Base(ev.Name))
	return err == nil && matched
}
