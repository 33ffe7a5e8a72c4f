// Package watcher ingests PDFs as they appear or change under a directory.
// It is a driving adapter: filesystem events drive the ingestion pipeline.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/dquery/internal/core/domain"
	"github.com/custodia-labs/dquery/internal/core/ports/driving"
	"github.com/custodia-labs/dquery/internal/logger"
)

// DefaultDebounce is how long a file must stay quiet before it is ingested.
const DefaultDebounce = 2 * time.Second

// ErrNotDirectory is returned when the watch root is not a directory.
var ErrNotDirectory = errors.New("watch root is not a directory")

// Config configures a Watcher.
type Config struct {
	// Debounce is the quiet period after the last write. Defaults to DefaultDebounce.
	Debounce time.Duration

	// Recursive also watches subdirectories, including ones created later.
	Recursive bool

	// InitialScan ingests PDFs already present before watching starts.
	InitialScan bool
}

// Result reports one ingestion attempt.
type Result struct {
	Path string
	ID   domain.RecordID
	Err  error
}

// Watcher feeds changed PDFs under a root directory into a pipeline.
type Watcher struct {
	root     string
	pipeline driving.PipelineService
	cfg      Config
}

// New creates a watcher for root.
func New(root string, pipeline driving.PipelineService, cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		pipeline: pipeline,
		cfg:      cfg,
	}
}

// change is the effect of one filesystem event on the pending set.
type change int

const (
	changeNone change = iota
	changeUpdated
	changeGone
	changeNewDir
)

// Run watches until ctx is cancelled, calling report after every ingestion.
// Ingestion is sequential; report may be nil.
func (w *Watcher) Run(ctx context.Context, report func(Result)) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %w: %s", domain.ErrInvalidInput, ErrNotDirectory, w.root)
	}
	if report == nil {
		report = func(Result) {}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addDirs(fsw, w.root); err != nil {
		return err
	}

	if w.cfg.InitialScan {
		paths, err := w.scan()
		if err != nil {
			return err
		}
		for _, path := range paths {
			if ctx.Err() != nil {
				return nil
			}
			w.ingest(ctx, path, report)
		}
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(max(w.cfg.Debounce/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			switch w.classify(event) {
			case changeUpdated:
				pending[event.Name] = time.Now()
			case changeGone:
				delete(pending, event.Name)
			case changeNewDir:
				if err := w.addDirs(fsw, event.Name); err != nil {
					logger.Warn("Cannot watch %s: %v", event.Name, err)
				}
			case changeNone:
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for _, path := range due(pending, now, w.cfg.Debounce) {
				delete(pending, path)
				w.ingest(ctx, path, report)
			}
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string, report func(Result)) {
	id, err := w.pipeline.IngestDocument(ctx, domain.Document{Path: path})
	if err != nil {
		logger.Warn("Ingest %s failed: %v", path, err)
	}
	report(Result{Path: path, ID: id, Err: err})
}

// classify maps an fsnotify event to its effect.
func (w *Watcher) classify(event fsnotify.Event) change {
	if w.hidden(event.Name) {
		return changeNone
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return changeGone
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return changeNone
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return changeNone
	}
	if info.IsDir() {
		if w.cfg.Recursive && event.Has(fsnotify.Create) {
			return changeNewDir
		}
		return changeNone
	}
	if !isPDF(event.Name) {
		return changeNone
	}
	return changeUpdated
}

// addDirs watches dir, and its subdirectories when recursive.
func (w *Watcher) addDirs(fsw *fsnotify.Watcher, dir string) error {
	if !w.cfg.Recursive {
		return fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.hidden(path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// scan lists PDFs already under the root, sorted.
func (w *Watcher) scan() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if w.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != w.root && !w.cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isPDF(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", w.root, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// due returns pending paths quiet for at least debounce, sorted.
func due(pending map[string]time.Time, now time.Time, debounce time.Duration) []string {
	var paths []string
	for path, last := range pending {
		if now.Sub(last) >= debounce {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// hidden reports whether path has a hidden element below the root.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return isHidden(path)
	}
	return isHidden(rel)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// isHidden reports whether any element of path starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
