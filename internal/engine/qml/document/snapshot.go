package document

import (
	"path/filepath"
	"sort"
	"sync"

	"qmllink/internal/engine/qml/parser"
)

// Snapshot is a consistent, read-only view of a set of documents and the
// qmldir manifests of their directories. Every modifier returns a new
// snapshot and leaves the receiver untouched, so snapshots may be shared
// between goroutines without locking.
type Snapshot struct {
	docs      map[string]*Document
	libraries map[string]*LibraryInfo
}

func NewSnapshot() Snapshot {
	return Snapshot{}
}

func (s Snapshot) cloneDocs(extra int) map[string]*Document {
	out := make(map[string]*Document, len(s.docs)+extra)
	for k, v := range s.docs {
		out[k] = v
	}
	return out
}

// Insert returns a snapshot containing doc, replacing any document with
// the same path.
func (s Snapshot) Insert(doc *Document) Snapshot {
	return s.With(doc)
}

// With inserts several documents with a single copy.
func (s Snapshot) With(docs ...*Document) Snapshot {
	next := s.cloneDocs(len(docs))
	for _, d := range docs {
		if d != nil {
			next[d.Path()] = d
		}
	}
	return Snapshot{docs: next, libraries: s.libraries}
}

// Remove returns a snapshot without the document at path.
func (s Snapshot) Remove(path string) Snapshot {
	path = filepath.Clean(path)
	if _, ok := s.docs[path]; !ok {
		return s
	}
	next := s.cloneDocs(0)
	delete(next, path)
	return Snapshot{docs: next, libraries: s.libraries}
}

// WithLibrary records the qmldir manifest of a directory. A nil info
// removes it.
func (s Snapshot) WithLibrary(dir string, info *LibraryInfo) Snapshot {
	dir = filepath.Clean(dir)
	next := make(map[string]*LibraryInfo, len(s.libraries)+1)
	for k, v := range s.libraries {
		next[k] = v
	}
	if info == nil {
		delete(next, dir)
	} else {
		next[dir] = info
	}
	return Snapshot{docs: s.docs, libraries: next}
}

// Document returns the document stored at path.
func (s Snapshot) Document(path string) (*Document, bool) {
	d, ok := s.docs[filepath.Clean(path)]
	return d, ok
}

// Documents lists all documents ordered by path.
func (s Snapshot) Documents() []*Document {
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}

// DocumentsInDirectory lists the documents whose parent directory is dir.
func (s Snapshot) DocumentsInDirectory(dir string) []*Document {
	dir = filepath.Clean(dir)
	var out []*Document
	for _, d := range s.Documents() {
		if d.Dir() == dir {
			out = append(out, d)
		}
	}
	return out
}

// Library returns the qmldir manifest recorded for dir.
func (s Snapshot) Library(dir string) (*LibraryInfo, bool) {
	l, ok := s.libraries[filepath.Clean(dir)]
	return l, ok
}

// LibraryPaths lists directories with a recorded manifest, sorted.
func (s Snapshot) LibraryPaths() []string {
	out := make([]string, 0, len(s.libraries))
	for dir := range s.libraries {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

func (s Snapshot) Len() int { return len(s.docs) }

// Refresh re-parses every working copy entry whose revision differs from
// the stored document and returns the updated snapshot.
func (s Snapshot) Refresh(p *parser.Parser, wc *WorkingCopy) Snapshot {
	if wc == nil {
		return s
	}
	var changed []*Document
	for path, entry := range wc.All() {
		if doc, ok := s.Document(path); ok && doc.Revision() == entry.Revision {
			continue
		}
		changed = append(changed, Parse(p, path, entry.Source, entry.Revision))
	}
	if len(changed) == 0 {
		return s
	}
	return s.With(changed...)
}

// WorkingCopyEntry is unsaved editor content for one file.
type WorkingCopyEntry struct {
	Source   []byte
	Revision int
}

// WorkingCopy overlays in-memory content on the files of a snapshot. It is
// safe for concurrent use.
type WorkingCopy struct {
	mu      sync.RWMutex
	entries map[string]WorkingCopyEntry
}

func NewWorkingCopy() *WorkingCopy {
	return &WorkingCopy{entries: make(map[string]WorkingCopyEntry)}
}

func (w *WorkingCopy) Set(path string, source []byte, revision int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[filepath.Clean(path)] = WorkingCopyEntry{Source: source, Revision: revision}
}

func (w *WorkingCopy) Remove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, filepath.Clean(path))
}

func (w *WorkingCopy) Get(path string) (WorkingCopyEntry, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entries[filepath.Clean(path)]
	return e, ok
}

// All returns a copy of every entry.
func (w *WorkingCopy) All() map[string]WorkingCopyEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]WorkingCopyEntry, len(w.entries))
	for k, v := range w.entries {
		out[k] = v
	}
	return out
}

func (w *WorkingCopy) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}
