package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"qmllink/internal/shared/observability"
	"qmllink/internal/shared/util"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports batches of changed QML, JavaScript and qmldir files.
// Events are debounced and a file whose content hash is unchanged since
// the last batch is dropped from the batch.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	debounce    time.Duration
	matcher     *util.Matcher
	extFilters  map[string]bool
	nameFilters map[string]bool
	onChange    func([]string)
	callbackMu  sync.Mutex

	pending   map[string]time.Time
	hashes    map[string]uint64
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	matcher, err := util.NewMatcher(excludeDirs, excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		matcher:   matcher,
		onChange:  onChange,
		pending:   make(map[string]time.Time),
		hashes:    make(map[string]uint64),
		extFilters: map[string]bool{
			".qml": true,
			".js":  true,
		},
		nameFilters: map[string]bool{
			"qmldir": true,
		},
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path, true); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

// watchRecursive adds root and its directories. With seed set, the
// hashes of existing files are recorded so unchanged rewrites are ignored.
func (w *Watcher) watchRecursive(root string, seed bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir() && path != root && w.matcher.ExcludeDir(path):
			return filepath.SkipDir
		case d.IsDir():
			return w.fsWatcher.Add(path)
		case seed && w.relevant(path):
			w.remember(path)
		}
		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addDirectory(event.Name)
			return
		}
	}
	if event.Op&relevantOps != 0 && w.relevant(event.Name) {
		w.scheduleChange(event.Name)
	}
}

// addDirectory starts watching a directory created after Watch and
// reports the files it already holds.
func (w *Watcher) addDirectory(dir string) {
	if w.matcher.ExcludeDir(dir) {
		return
	}
	if err := w.watchRecursive(dir, false); err != nil {
		slog.Warn("failed to watch new directory", "path", dir, "error", err)
		return
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && w.relevant(path) {
			w.scheduleChange(path)
		}
		return nil
	})
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		if w.changedLocked(path) {
			paths = append(paths, path)
		}
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// changedLocked updates the stored hash of path and reports whether the
// content differs from the last one seen. Unreadable files count as
// changed so removals are reported.
func (w *Watcher) changedLocked(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		delete(w.hashes, path)
		return true
	}
	sum := xxhash.Sum64(data)
	if prev, ok := w.hashes[path]; ok && prev == sum {
		return false
	}
	w.hashes[path] = sum
	return true
}

func (w *Watcher) remember(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	w.pendingMu.Lock()
	w.hashes[path] = xxhash.Sum64(data)
	w.pendingMu.Unlock()
}

// relevant reports whether path is a QML, JavaScript or qmldir file that
// is not excluded.
func (w *Watcher) relevant(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if !w.nameFilters[base] && !w.extFilters[strings.ToLower(filepath.Ext(base))] {
		return false
	}
	return !w.matcher.ExcludeFile(path)
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
