package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig configures a SourceWatcher.
type WatcherConfig struct {
	// Path is the source file or directory to watch.
	Path string

	// DebounceInterval is the quiet period required before re-extraction
	// fires. Default: 250ms.
	DebounceInterval time.Duration

	// Extensions limits which files trigger re-extraction.
	// Default: .cbl, .cob, .cpy.
	Extensions []string
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 250 * time.Millisecond,
		Extensions:       []string{".cbl", ".cob", ".cpy"},
	}
}

// SourceWatcher watches legacy source files and triggers re-extraction when
// they change. Rapid event bursts (editor save storms) are debounced into a
// single callback.
type SourceWatcher struct {
	watcher *fsnotify.Watcher
	config  *WatcherConfig
	logger  *slog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	running bool
}

// NewSourceWatcher creates a watcher for the configured path.
func NewSourceWatcher(config *WatcherConfig, logger *slog.Logger) (*SourceWatcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &SourceWatcher{
		watcher: w,
		config:  config,
		logger:  logger.With("component", "extract.watcher"),
	}, nil
}

// Watch blocks until the context is cancelled, invoking onChange with the
// changed path after each debounced burst of file events. Watch errors are
// logged and watching continues.
func (sw *SourceWatcher) Watch(ctx context.Context, onChange func(path string) error) error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	sw.running = true
	sw.mu.Unlock()

	if err := sw.addPath(sw.config.Path); err != nil {
		return fmt.Errorf("watch path %q: %w", sw.config.Path, err)
	}

	sw.logger.Info("source watcher started",
		"path", sw.config.Path,
		"debounce_ms", sw.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("source watcher stopped")
			return nil

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !sw.relevant(event) {
				continue
			}
			sw.logger.Debug("source change detected", "path", event.Name, "op", event.Op.String())
			sw.debounce(func() {
				if err := onChange(event.Name); err != nil {
					sw.logger.Error("re-extraction failed", "path", event.Name, "error", err)
				}
			})

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			sw.logger.Error("source watcher error", "error", err)
		}
	}
}

// Close stops watching and cancels any pending callback.
func (sw *SourceWatcher) Close() error {
	sw.mu.Lock()
	if sw.timer != nil {
		sw.timer.Stop()
		sw.timer = nil
	}
	sw.mu.Unlock()
	return sw.watcher.Close()
}

func (sw *SourceWatcher) debounce(fn func()) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.timer != nil {
		sw.timer.Stop()
	}
	sw.timer = time.AfterFunc(sw.config.DebounceInterval, fn)
}

func (sw *SourceWatcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return sw.watcher.Add(path)
	}
	return filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if strings.HasPrefix(filepath.Base(p), ".") && p != path {
				return filepath.SkipDir
			}
			return sw.watcher.Add(p)
		}
		return nil
	})
}

func (sw *SourceWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, want := range sw.config.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
