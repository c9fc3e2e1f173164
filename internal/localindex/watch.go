package localindex

import (
	"context"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentstation/enginelink/pkg/constants"
	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/logging"
)

// Watch rescans the index whenever files below the models directory change,
// after a quiet period of constants.WatchDebounce. It blocks until ctx is done.
func (i *FSIndex) Watch(ctx context.Context) error {
	return i.watch(ctx, constants.WatchDebounce)
}

func (i *FSIndex) watch(ctx context.Context, debounce time.Duration) error {
	logger := logging.FromContext(ctx).With().Str("component", "localindex").Str("root", i.root).Logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapIO("watch", i.root, err)
	}
	defer func() { _ = watcher.Close() }()

	for _, dir := range i.dirs() {
		if err := watcher.Add(dir); err != nil {
			if dir == i.root {
				return errors.WrapIO("watch", dir, err)
			}
			logger.Warn().Err(err).Str("dir", dir).Msg("cannot watch directory")
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// fsnotify is not recursive
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			for _, dir := range i.dirs() {
				_ = watcher.Add(dir)
			}
			changed, err := i.Scan()
			if err != nil {
				logger.Warn().Err(err).Msg("rescan failed")
				continue
			}
			if changed {
				logger.Debug().Msg("local index changed")
			}
		}
	}
}
