package store

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"eltro-backend/internal/logger"
)

// Reloadable is a store the watcher can refresh from disk.
type Reloadable interface {
	Path() string
	ReloadIfChanged()
}

// Watch reloads stores whose backing files are edited out of band
// (a manual fix in the data dir, a restored backup). Self-writes are
// filtered by content hash inside ReloadIfChanged. Close the returned
// watcher to stop.
func Watch(dataDir string, stores []Reloadable) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dataDir); err != nil {
		watcher.Close()
		return nil, err
	}

	byName := make(map[string]Reloadable, len(stores))
	for _, st := range stores {
		byName[filepath.Base(st.Path())] = st
	}

	log := logger.WithComponent("watcher")
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(event.Name)
				if strings.HasSuffix(name, ".tmp") {
					continue
				}
				if st, ok := byName[name]; ok {
					st.ReloadIfChanged()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("watch error")
			}
		}
	}()

	log.Info().Str("dir", dataDir).Msg("watching data directory")
	return watcher, nil
}
