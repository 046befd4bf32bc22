package command

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/relaycode/relay/internal/logging"
)

// Watch hot-reloads file-defined commands while the directory changes.
// Blocks until ctx is cancelled. Missing directory is not an error; the
// watcher simply never fires.
func (e *Executor) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	commandDir := filepath.Join(e.workDir, ".relay", "command")
	if err := watcher.Add(commandDir); err != nil {
		logging.Debug().Err(err).Str("dir", commandDir).Msg("command directory not watched")
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			logging.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("reloading commands")
			e.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Msg("command watcher error")
		}
	}
}
