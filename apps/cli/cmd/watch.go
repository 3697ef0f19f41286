package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abdul-hamid-achik/hitcase/packages/logging"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// isWorkspaceFile reports whether a change to name should trigger a re-run.
func isWorkspaceFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".js":
		return true
	}
	return filepath.Base(name) == dotEnvFile
}

// watchWorkspace calls rerun after files under dir change, until ctx is
// cancelled. Bursts of events within WatchDebounceDelay trigger one run.
func watchWorkspace(ctx context.Context, out io.Writer, dir string, rerun func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	var (
		debounce <-chan time.Time
		changed  string
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Chmod) || !isWorkspaceFile(event.Name) {
				continue
			}
			changed = event.Name
			debounce = time.After(WatchDebounceDelay)

		case <-debounce:
			debounce = nil
			fmt.Fprintf(out, "\n\nFile changed: %s\nRe-running...\n\n", changed)
			rerun()
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch", "watcher error: %v", err)
		}
	}
}
