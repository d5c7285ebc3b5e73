package wanconfig

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher notifies a callback whenever the on-disk config file is
// rewritten, driving hot reload of the subset of fields safe to swap
// without restarting the process.
type Watcher struct {
	fw  *fsnotify.Watcher
	log zerolog.Logger
}

// WatchFile starts watching path's containing directory rather than the
// file itself: editors and config-management tools commonly replace a
// file with rename+create rather than writing it in place, which drops
// a direct watch on the old inode. onChange fires after every write or
// create event naming path; callers re-run Load themselves to get a
// fresh, validated config.
func WatchFile(path string, log zerolog.Logger, onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{fw: fw, log: log}
	go w.loop(filepath.Clean(path), onChange)
	return w, nil
}

func (w *Watcher) loop(path string, onChange func()) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			onChange()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("config watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
