package usages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qmllink/internal/core/errors"
	"qmllink/internal/engine/qml/ast"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/link"
	"qmllink/internal/engine/qml/parser"
	"qmllink/internal/engine/qml/scope"
)

// Usage is one occurrence of the searched symbol. Line is 1-based,
// Column is 0-based and counted in runes like Length. The zero Usage is
// the placeholder emitted when a search starts.
type Usage struct {
	Path     string `json:"path"`
	LineText string `json:"line_text"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Length   int    `json:"length"`
}

// IsPlaceholder reports whether u is the search-started marker.
func (u Usage) IsPlaceholder() bool { return u == Usage{} }

func (u Usage) String() string {
	if u.IsPlaceholder() {
		return "<searching>"
	}
	return fmt.Sprintf("%s:%d:%d", u.Path, u.Line, u.Column+1)
}

func newUsage(doc *document.Document, loc ast.SourceLocation) Usage {
	src := doc.Source()
	length := loc.Length
	if end := loc.End(); loc.Offset >= 0 && end <= len(src) {
		length = utf8.RuneCount(src[loc.Offset:end])
	}
	return Usage{
		Path:     doc.Path(),
		LineText: doc.LineText(loc.StartLine),
		Line:     loc.StartLine,
		Column:   loc.StartColumn - 1,
		Length:   length,
	}
}

// State is the lifecycle of a Search.
type State int32

const (
	Idle State = iota
	Searching
	Completed
)

func (s State) String() string {
	switch s {
	case Searching:
		return "searching"
	case Completed:
		return "completed"
	}
	return "idle"
}

const resultBuffer = 64

// Search is one running or finished usage search. Results are delivered
// on Results in arbitrary order after the placeholder; the channel is
// closed before Done fires. Done fires exactly once.
type Search struct {
	id      string
	state   atomic.Int32
	results chan Usage
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	err    error
	target Target
	found  int
}

func newSearch() *Search {
	return &Search{
		id:      uuid.NewString(),
		results: make(chan Usage, resultBuffer),
		done:    make(chan struct{}),
	}
}

func (s *Search) ID() string            { return s.id }
func (s *Search) State() State          { return State(s.state.Load()) }
func (s *Search) Results() <-chan Usage { return s.results }
func (s *Search) Done() <-chan struct{} { return s.done }

// Err is the reason the search ended early, or nil. Valid after Done.
func (s *Search) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Target is the symbol the search looks for. Valid after Done.
func (s *Search) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Found is the number of usages delivered, placeholder excluded.
func (s *Search) Found() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.found
}

// Collect drains the results until the search completes.
func (s *Search) Collect() ([]Usage, error) {
	var out []Usage
	for u := range s.results {
		out = append(out, u)
	}
	<-s.done
	return out, s.Err()
}

// start moves Idle to Searching and runs fn in the background. Only the
// first call is accepted.
func (s *Search) start(ctx context.Context, fn func(ctx context.Context) error) bool {
	if !s.state.CompareAndSwap(int32(Idle), int32(Searching)) {
		return false
	}
	go func() {
		err := fn(ctx)
		s.finish(err)
	}()
	return true
}

func (s *Search) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.results)
		s.state.Store(int32(Completed))
		close(s.done)
	})
}

func (s *Search) setTarget(t Target) {
	s.mu.Lock()
	s.target = t
	s.mu.Unlock()
}

// emit delivers u unless ctx ends first.
func (s *Search) emit(ctx context.Context, u Usage) error {
	select {
	case s.results <- u:
	case <-ctx.Done():
		return errors.FromContext(ctx)
	}
	if !u.IsPlaceholder() {
		s.mu.Lock()
		s.found++
		s.mu.Unlock()
	}
	return nil
}

// Finder starts usage searches over snapshots.
type Finder struct {
	engine      *interp.Engine
	parser      *parser.Parser
	importPaths []string
	workers     int
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithImportPaths sets the directories searched for library imports.
func WithImportPaths(paths ...string) FinderOption {
	return func(f *Finder) { f.importPaths = append([]string(nil), paths...) }
}

// WithWorkers bounds the number of files searched concurrently.
func WithWorkers(n int) FinderOption {
	return func(f *Finder) {
		if n > 0 {
			f.workers = n
		}
	}
}

func NewFinder(engine *interp.Engine, p *parser.Parser, opts ...FinderOption) *Finder {
	f := &Finder{
		engine:  engine,
		parser:  p,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start begins a search for the symbol at offset in the document at path.
// wc may be nil. The returned Search always completes, also when the
// document is missing or nothing searchable is at offset.
func (f *Finder) Start(ctx context.Context, snapshot document.Snapshot, wc *document.WorkingCopy, path string, offset int) *Search {
	s := newSearch()
	s.start(ctx, func(ctx context.Context) error {
		return f.run(ctx, s, snapshot, wc, filepath.Clean(path), offset)
	})
	return s
}

func (f *Finder) run(ctx context.Context, s *Search, snapshot document.Snapshot, wc *document.WorkingCopy, path string, offset int) error {
	started := time.Now()
	snapshot = snapshot.Refresh(f.parser, wc)
	doc, ok := snapshot.Document(path)
	if !ok {
		return errors.AddContext(errors.New(errors.CodeNotFound, "document not in snapshot"), errors.CtxPath, path)
	}

	linked := scope.NewContext(f.engine, snapshot)
	link.New(linked, snapshot, f.importPaths).Run(nil)
	if ctx.Err() != nil {
		return errors.FromContext(ctx)
	}

	at := linked.Clone()
	b := scope.NewBuilder(at, doc)
	b.InitializeRootScope()
	b.PushAll(scope.PathAt(doc, offset))
	target := NewFindTargetExpression(doc, at).Find(offset)
	s.setTarget(target)
	if !target.Found() {
		slog.Debug("no search target", "path", path, "offset", offset)
		return nil
	}

	q := Query{Name: target.Name, Kind: target.Kind}
	if target.Kind == TypeTarget {
		q.Object = target.TypeObject()
	} else if target.Scope != nil {
		_, q.Object = target.Scope.LookupMember(target.Name, at)
	}
	if q.Object == nil {
		slog.Debug("search target does not resolve", "path", path, "name", target.Name, "kind", target.Kind)
		return nil
	}

	if err := s.emit(ctx, Usage{}); err != nil {
		return err
	}
	err := SearchFiles(ctx, linked, snapshot.Documents(), q, f.workers, func(u Usage) error {
		return s.emit(ctx, u)
	})
	slog.Debug("search finished",
		"id", s.ID(),
		"name", q.Name,
		"kind", q.Kind,
		"usages", s.Found(),
		"duration", time.Since(started),
	)
	return err
}

// Query is a resolved search request: the name plus the object that
// defines it, or the type object for type searches.
type Query struct {
	Name   string
	Kind   TargetKind
	Object *interp.ObjectValue
}

// SearchFiles runs q over docs with at most workers files in flight. Each
// file gets its own clone of linked. emit is called from several
// goroutines; an error from emit stops the search.
func SearchFiles(ctx context.Context, linked *scope.Context, docs []*document.Document, q Query, workers int, emit func(Usage) error) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, loc := range searchFile(doc, linked.Clone(), q) {
				if err := emit(newUsage(doc, loc)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	err := g.Wait()
	if ctx.Err() != nil {
		return errors.FromContext(ctx)
	}
	return err
}

func searchFile(doc *document.Document, ctx *scope.Context, q Query) []ast.SourceLocation {
	if q.Kind == TypeTarget {
		return NewFindTypeUsages(doc, ctx).Find(q.Name, q.Object)
	}
	return NewFindUsages(doc, ctx).Find(q.Name, q.Object)
}
