package lint

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/skillbench/skillbench/pkg/logger"
)

// DefaultDebounce collapses editor save bursts into one lint pass.
const DefaultDebounce = 500 * time.Millisecond

// Watch lints once immediately, then re-lints whenever a markdown file
// under any configured directory changes, calling onReport after every
// pass. It blocks until the context is cancelled.
func Watch(ctx context.Context, cfg Config, debounce time.Duration, onReport func(*Report)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	watched := 0
	for _, dir := range watchRoots(cfg) {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || !info.IsDir() {
				return nil
			}
			if err := watcher.Add(path); err != nil {
				return err
			}
			watched++
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}
	logger.G(ctx).WithField("directories", watched).Info("Watching content tree")

	run := func() {
		report, err := Run(cfg)
		if err != nil {
			logger.G(ctx).WithError(err).Error("Lint pass failed")
			return
		}
		onReport(report)
	}
	run()

	// One timer for the whole tree: any change re-lints everything,
	// so per-file debouncing buys nothing.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".md") {
				// A created directory must be watched for the files
				// that will land in it.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			logger.G(ctx).WithField("file", event.Name).WithField("op", event.Op.String()).Debug("Change detected")
			timer.Reset(debounce)
		case <-timer.C:
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("File watcher error")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func watchRoots(cfg Config) []string {
	var roots []string
	seen := make(map[string]bool)
	for _, dirs := range [][]string{cfg.SkillDirs, cfg.AgentDirs, cfg.ScenarioDirs, cfg.DomainDirs} {
		for _, dir := range dirs {
			if seen[dir] {
				continue
			}
			seen[dir] = true
			if _, err := os.Stat(dir); err != nil {
				continue
			}
			roots = append(roots, dir)
		}
	}
	return roots
}
