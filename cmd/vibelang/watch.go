package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchPaths reruns action whenever a watched .vbl file is written. The
// parent directories are watched so editors that replace files on save
// still trigger.
func watchPaths(targets []string, action func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]struct{}{}
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("stat %s: %w", target, err)
		}
		dir := target
		if !info.IsDir() {
			dir = filepath.Dir(target)
		}
		dirs[dir] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	runAction := func() {
		if err := action(); err != nil && err != exitFailure {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	runAction()
	fmt.Fprintln(os.Stderr, "watching for changes... (ctrl+c to stop)")

	// Editors fire bursts of events per save; debounce them.
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(ev.Name) != ".vbl" {
				continue
			}
			pending = time.After(100 * time.Millisecond)
		case <-pending:
			pending = nil
			runAction()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}
