package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"factorydash.xyz/alert-engine/pkg/common"
)

const defaultDebounce = 250 * time.Millisecond

type watchOptions struct {
	debounce time.Duration
}

type WatchOption func(*watchOptions)

// WithDebounce sets how long the file must stay quiet before it is reloaded.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watch reloads path once writes to it settle and hands the parsed file to
// onChange until ctx is done. A file that fails to parse is logged and
// skipped; the previously applied configuration stays active.
func Watch(ctx context.Context, path string, onChange func(*File), opts ...WatchOption) error {
	logger := common.GetLoggerWith(common.LoggerNameRulesWatcher)
	o := watchOptions{debounce: defaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// watch the directory: editors that save atomically replace the file inode
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)
	logger.Info("Watching rules file", zap.String("path", target), zap.Duration("debounce", o.debounce))

	settle := time.NewTimer(o.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			settle.Reset(o.debounce)

		case <-settle.C:
			f, err := LoadFile(target)
			if err != nil {
				logger.Error("Rules reload failed, keeping previous rules", zap.String("path", target), zap.Error(err))
				continue
			}
			logger.Info("Rules file changed", zap.String("path", target), zap.Int("rules", len(f.Rules)))
			onChange(f)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}
