// Package workspace keeps the current snapshot of a QML project: it loads
// documents and qmldir manifests from disk, overlays unsaved editor
// content and applies batches of file changes.
package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"qmllink/internal/core/errors"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/parser"
	"qmllink/internal/shared/observability"
	"qmllink/internal/shared/util"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
)

const manifestName = "qmldir"

type Options struct {
	Roots        []string
	ImportPaths  []string
	ExcludeDirs  []string
	ExcludeFiles []string
	CacheSize    int
	Workers      int
}

type cacheKey struct {
	path     string
	sum      uint64
	revision int
}

// Workspace is safe for concurrent use. Readers get whole snapshots; every
// change swaps in a new one.
type Workspace struct {
	parser  *parser.Parser
	opts    Options
	matcher *util.Matcher
	cache   *lru.Cache[cacheKey, *document.Document]
	wc      *document.WorkingCopy

	mu         sync.RWMutex
	snapshot   document.Snapshot
	manifests  map[string][]document.Diagnostic
	generation uint64
}

func New(p *parser.Parser, opts Options) (*Workspace, error) {
	matcher, err := util.NewMatcher(opts.ExcludeDirs, opts.ExcludeFiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude pattern")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	cache, err := lru.New[cacheKey, *document.Document](opts.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create parse cache")
	}
	opts.Roots = cleanAll(opts.Roots)
	opts.ImportPaths = cleanAll(opts.ImportPaths)
	return &Workspace{
		parser:    p,
		opts:      opts,
		matcher:   matcher,
		cache:     cache,
		wc:        document.NewWorkingCopy(),
		snapshot:  document.NewSnapshot(),
		manifests: make(map[string][]document.Diagnostic),
	}, nil
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, filepath.Clean(p))
		}
	}
	return out
}

func (w *Workspace) Parser() *parser.Parser             { return w.parser }
func (w *Workspace) ImportPaths() []string              { return append([]string(nil), w.opts.ImportPaths...) }
func (w *Workspace) Roots() []string                    { return append([]string(nil), w.opts.Roots...) }
func (w *Workspace) WorkingCopy() *document.WorkingCopy { return w.wc }

// Generation increases with every change to the stored snapshot.
func (w *Workspace) Generation() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.generation
}

// Snapshot returns the files as last loaded from disk.
func (w *Workspace) Snapshot() document.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Current returns the disk snapshot with the working copy applied.
// Documents are parsed through the cache, so repeated calls with the same
// working copy are cheap.
func (w *Workspace) Current() document.Snapshot {
	snap := w.Snapshot()
	var changed []*document.Document
	for path, entry := range w.wc.All() {
		if doc, ok := snap.Document(path); ok && doc.Revision() == entry.Revision {
			continue
		}
		changed = append(changed, w.parse(path, entry.Source, entry.Revision))
	}
	if len(changed) == 0 {
		return snap
	}
	return snap.With(changed...)
}

// ManifestDiagnostics lists problems found in qmldir files, ordered by path.
func (w *Workspace) ManifestDiagnostics() []document.Diagnostic {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []document.Diagnostic
	for _, dir := range util.SortedStringKeys(w.manifests) {
		out = append(out, w.manifests[dir]...)
	}
	return out
}

func (w *Workspace) parse(path string, source []byte, revision int) *document.Document {
	key := cacheKey{path: path, sum: xxhash.Sum64(source), revision: revision}
	if doc, ok := w.cache.Get(key); ok {
		observability.ParseCacheTotal.WithLabelValues("hit").Inc()
		return doc
	}
	observability.ParseCacheTotal.WithLabelValues("miss").Inc()

	start := time.Now()
	doc := document.Parse(w.parser, path, source, revision)
	observability.ParsingDuration.WithLabelValues(doc.Language().String()).Observe(time.Since(start).Seconds())
	w.cache.Add(key, doc)
	return doc
}

type fileSet struct {
	sources   []string
	manifests []string
}

// collect lists the source files and manifests below the roots and import
// paths. A path reachable from several directories is listed once.
func (w *Workspace) collect(ctx context.Context) (fileSet, error) {
	seen := make(map[string]bool)
	var files fileSet
	dirs := append(append([]string(nil), w.opts.Roots...), w.opts.ImportPaths...)
	for _, root := range dirs {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if path != root && w.matcher.ExcludeDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if seen[path] {
				return nil
			}
			seen[path] = true
			if d.Name() == manifestName {
				files.manifests = append(files.manifests, path)
				return nil
			}
			if _, ok := document.LanguageForPath(path); ok && !w.matcher.ExcludeFile(path) {
				files.sources = append(files.sources, path)
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return fileSet{}, errors.FromContext(ctx)
			}
			return fileSet{}, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "failed to scan directory"), errors.CtxPath, root)
		}
	}
	sort.Strings(files.sources)
	sort.Strings(files.manifests)
	return files, nil
}

func readError(err error, path string) error {
	code := errors.CodeInternal
	if os.IsNotExist(err) {
		code = errors.CodeNotFound
	}
	return errors.AddContext(errors.Wrap(err, code, "failed to read file"), errors.CtxPath, path)
}

// Load replaces the snapshot with the files currently on disk.
func (w *Workspace) Load(ctx context.Context) (document.Snapshot, error) {
	started := time.Now()
	files, err := w.collect(ctx)
	if err != nil {
		return document.Snapshot{}, err
	}

	docs := make([]*document.Document, len(files.sources))
	infos := make([]*document.LibraryInfo, len(files.manifests))
	diags := make([][]document.Diagnostic, len(files.manifests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)
	for i, path := range files.sources {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return readError(err, path)
			}
			docs[i] = w.parse(path, data, 0)
			return nil
		})
	}
	for i, path := range files.manifests {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return readError(err, path)
			}
			infos[i], diags[i] = document.ParseLibraryInfo(filepath.Dir(path), data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return document.Snapshot{}, errors.FromContext(ctx)
		}
		return document.Snapshot{}, err
	}

	snap := document.NewSnapshot().With(docs...)
	manifests := make(map[string][]document.Diagnostic)
	for i, info := range infos {
		snap = snap.WithLibrary(info.Dir, info)
		if len(diags[i]) > 0 {
			manifests[info.Dir] = diags[i]
		}
	}

	w.mu.Lock()
	w.snapshot = snap
	w.manifests = manifests
	w.generation++
	w.mu.Unlock()

	observability.SnapshotDocuments.Set(float64(snap.Len()))
	slog.Info("workspace loaded",
		"documents", snap.Len(),
		"libraries", len(infos),
		"duration", time.Since(started),
	)
	return snap, nil
}

// Changes summarises one Apply call.
type Changes struct {
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

func (c Changes) Empty() bool { return len(c.Updated) == 0 && len(c.Removed) == 0 }

// Apply re-reads the given paths and updates the snapshot: missing files
// are removed, qmldir files replace their directory's manifest, other
// source files are re-parsed. Paths that are neither are ignored.
func (w *Workspace) Apply(paths []string) (Changes, error) {
	var ch Changes
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := w.snapshot
	for _, path := range paths {
		path = filepath.Clean(path)
		isManifest := filepath.Base(path) == manifestName
		if !isManifest {
			if _, ok := document.LanguageForPath(path); !ok || w.matcher.ExcludeFile(path) {
				continue
			}
		}

		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return ch, readError(err, path)
		}
		missing := err != nil

		switch {
		case isManifest && missing:
			snap = snap.WithLibrary(filepath.Dir(path), nil)
			delete(w.manifests, filepath.Dir(path))
			ch.Removed = append(ch.Removed, path)
		case isManifest:
			info, diags := document.ParseLibraryInfo(filepath.Dir(path), data)
			snap = snap.WithLibrary(info.Dir, info)
			if len(diags) > 0 {
				w.manifests[info.Dir] = diags
			} else {
				delete(w.manifests, info.Dir)
			}
			ch.Updated = append(ch.Updated, path)
		case missing:
			if _, ok := snap.Document(path); ok {
				snap = snap.Remove(path)
				ch.Removed = append(ch.Removed, path)
			}
		default:
			snap = snap.Insert(w.parse(path, data, 0))
			ch.Updated = append(ch.Updated, path)
		}
	}

	if !ch.Empty() {
		w.snapshot = snap
		w.generation++
		observability.SnapshotDocuments.Set(float64(snap.Len()))
		slog.Debug("workspace updated", "updated", len(ch.Updated), "removed", len(ch.Removed))
	}
	return ch, nil
}
