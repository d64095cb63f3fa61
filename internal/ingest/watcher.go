package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tickerql/tickerql/internal/observability"
)

const defaultWatchDebounce = 500 * time.Millisecond

// TickersWatcher calls onChange after the tickers file is written. Bursts of
// writes within the debounce window collapse into one call, and calls never
// overlap.
type TickersWatcher struct {
	path     string
	debounce time.Duration
	onChange func(context.Context) error
	logger   *slog.Logger
}

func NewTickersWatcher(path string, debounce time.Duration, onChange func(context.Context) error, logger *slog.Logger) (*TickersWatcher, error) {
	if path == "" {
		return nil, fmt.Errorf("tickers file is not configured")
	}
	if onChange == nil {
		return nil, fmt.Errorf("change handler is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve tickers file %q: %w", path, err)
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &TickersWatcher{path: absPath, debounce: debounce, onChange: onChange, logger: logger}, nil
}

// WatchTickersFile re-ingests the configured tickers file whenever it
// changes, until ctx is cancelled.
func (s *Service) WatchTickersFile(ctx context.Context) error {
	watcher, err := NewTickersWatcher(s.tickersFile, defaultWatchDebounce, func(ctx context.Context) error {
		_, err := s.RunTickersFile(ctx, TriggerTickersFile)
		return err
	}, s.logger)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// Run blocks until ctx is cancelled. The parent directory is watched so
// editors that replace the file on save are still picked up.
func (w *TickersWatcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %q: %w", filepath.Dir(w.path), err)
	}
	w.logger.InfoContext(ctx, "watching tickers file", slog.String("path", w.path))

	timer := time.NewTimer(w.debounce)
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != w.path {
				continue
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			w.logger.InfoContext(ctx, "tickers file changed", slog.String("path", w.path))
			if err := w.onChange(ctx); err != nil {
				w.logger.ErrorContext(ctx, "tickers file ingest failed", slog.String("error", err.Error()))
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "tickers file watcher error", slog.String("error", err.Error()))
		}
	}
}
