// cmd/aozora/config_watcher.go
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SourcesWatcher reloads the feed list when sources.yml changes on disk, so
// the operator can add or pause feeds without restarting the bot.
type SourcesWatcher struct {
	path    string
	fetcher *Fetcher
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// StartSourcesWatcher begins watching the sources file
func StartSourcesWatcher(path string, fetcher *Fetcher) (*SourcesWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %v", err)
	}

	// Watch the directory: editors replace the file on save, which breaks
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %v", filepath.Dir(path), err)
	}

	sw := &SourcesWatcher{
		path:    path,
		fetcher: fetcher,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

func (sw *SourcesWatcher) loop() {
	target := filepath.Clean(sw.path)
	for {
		select {
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			sw.reload()
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			Logger().Warning("Sources watcher error: %v", err)
		case <-sw.done:
			return
		}
	}
}

func (sw *SourcesWatcher) reload() {
	sources, err := LoadSources(sw.path)
	if err != nil {
		Logger().Error("Sources reload failed, keeping previous list: %v", err)
		return
	}
	sw.fetcher.SetSources(sources)
	Logger().Info("Sources reloaded: %d configured, %d active", len(sources), len(ActiveSources(sources)))
}

// Close stops watching
func (sw *SourcesWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
