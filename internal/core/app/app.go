// Package app wires configuration, the QML engine, the workspace and the
// search history into the service the CLI drives.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"qmllink/internal/core/config"
	"qmllink/internal/core/errors"
	"qmllink/internal/core/ports"
	"qmllink/internal/core/watcher"
	"qmllink/internal/core/workspace"
	"qmllink/internal/data/history"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/link"
	"qmllink/internal/engine/qml/parser"
	"qmllink/internal/engine/qml/scope"
	"qmllink/internal/engine/qml/usages"
	"qmllink/internal/shared/observability"
	"qmllink/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
)

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	engine    *interp.Engine
	parser    *parser.Parser
	workspace *workspace.Workspace
	limiter   *util.Limiter

	history  ports.HistoryStore
	recorder *recorder
	tracing  observability.ShutdownFunc

	mu            sync.Mutex
	finder        *usages.Finder
	searchTimeout time.Duration
	linked        *linkState
	revision      int
	buffers       uint64
	activeWatcher *watcher.Watcher
}

// linkState is a linked snapshot together with what it was built from.
type linkState struct {
	generation  uint64
	buffers     uint64
	snapshot    document.Snapshot
	context     *scope.Context
	documents   int
	diagnostics []document.Diagnostic
}

// New builds the engine from the built-in and configured type catalogues
// and prepares an empty workspace. Call Load before querying.
func New(ctx context.Context, cfg *config.Config, paths config.ResolvedPaths) (*App, error) {
	catalogues := make([]*interp.Catalogue, 0, len(paths.Catalogues))
	for _, path := range paths.Catalogues {
		cat, err := interp.LoadCatalogueFile(path)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeParse, "failed to load type catalogue"), errors.CtxPath, path)
		}
		catalogues = append(catalogues, cat)
	}
	engine, err := interp.NewEngine(catalogues...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "failed to build engine")
	}

	p := parser.New()
	ws, err := workspace.New(p, workspace.Options{
		Roots:        paths.Roots,
		ImportPaths:  paths.ImportPaths,
		ExcludeDirs:  cfg.Workspace.Exclude.Dirs,
		ExcludeFiles: cfg.Workspace.Exclude.Files,
		CacheSize:    cfg.Cache.Documents,
		Workers:      cfg.Search.Workers,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:        cfg,
		Paths:         paths,
		engine:        engine,
		parser:        p,
		workspace:     ws,
		limiter:       util.NewLimiter(cfg.Watch.RelinkPerSecond, cfg.Watch.RelinkBurst),
		searchTimeout: cfg.Search.Timeout,
		tracing:       func(context.Context) error { return nil },
	}
	a.finder = a.newFinder(cfg.Search.Workers)

	if cfg.History.Enabled {
		store, err := history.Open(paths.HistoryPath, cfg.History.BusyTimeout)
		if err != nil {
			return nil, err
		}
		a.history = store
		a.recorder = newRecorder(store, a.projectKey(), cfg.History.Keep)
	}

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.ServiceName, cfg.Observability.OTLPEndpoint)
		if err != nil {
			_ = a.Close(ctx)
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize tracing")
		}
		a.tracing = shutdown
	}
	return a, nil
}

func (a *App) newFinder(workers int) *usages.Finder {
	return usages.NewFinder(a.engine, a.parser,
		usages.WithImportPaths(a.Paths.ImportPaths...),
		usages.WithWorkers(workers),
	)
}

func (a *App) projectKey() string {
	return a.Paths.ProjectRoot
}

// Load reads the workspace from disk.
func (a *App) Load(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "App.Load")
	defer span.End()

	snap, err := a.workspace.Load(ctx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("documents", snap.Len()))
	return nil
}

// Workspace exposes the underlying workspace.
func (a *App) Workspace() *workspace.Workspace { return a.workspace }

// Engine exposes the engine used for linking.
func (a *App) Engine() *interp.Engine { return a.engine }

// link returns the linked current snapshot, relinking only when the
// workspace or the editor buffers changed since the last call.
func (a *App) link(ctx context.Context) (*linkState, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(ctx)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	generation := a.workspace.Generation()
	if a.linked != nil && a.linked.generation == generation && a.linked.buffers == a.buffers {
		return a.linked, nil
	}

	_, span := observability.Tracer.Start(ctx, "App.link")
	defer span.End()

	started := time.Now()
	snap := a.workspace.Current()
	linked := scope.NewContext(a.engine, snap)

	var diags []document.Diagnostic
	for _, doc := range snap.Documents() {
		diags = append(diags, doc.Diagnostics()...)
	}
	diags = append(diags, a.workspace.ManifestDiagnostics()...)
	n := link.New(linked, snap, a.Paths.ImportPaths).Run(func(d document.Diagnostic) {
		observability.LinkDiagnosticsTotal.WithLabelValues(d.Severity.String()).Inc()
		diags = append(diags, d)
	})
	sortDiagnostics(diags)

	elapsed := time.Since(started)
	observability.LinkDuration.Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.Int("documents", n),
		attribute.Int("diagnostics", len(diags)),
		attribute.Int64("generation", int64(generation)),
	)
	slog.Debug("linked workspace", "documents", n, "diagnostics", len(diags), "duration", elapsed)

	a.linked = &linkState{
		generation:  generation,
		buffers:     a.buffers,
		snapshot:    snap,
		context:     linked,
		documents:   snap.Len(),
		diagnostics: diags,
	}
	return a.linked, nil
}

func sortDiagnostics(diags []document.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Loc.StartLine != b.Loc.StartLine {
			return a.Loc.StartLine < b.Loc.StartLine
		}
		return a.Loc.StartColumn < b.Loc.StartColumn
	})
}

// SetBuffer records unsaved editor content for path. Each call gets a
// new revision, so the overlay always replaces the disk version.
func (a *App) SetBuffer(path string, source []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revision++
	a.buffers++
	a.workspace.WorkingCopy().Set(a.absPath(path), source, a.revision)
}

// ClearBuffer drops the editor content for path.
func (a *App) ClearBuffer(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffers++
	a.workspace.WorkingCopy().Remove(a.absPath(path))
}

func (a *App) absPath(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(a.Paths.ProjectRoot, path)
}

// resolve maps a position to a document of the linked snapshot and a
// byte offset in it.
func (a *App) resolve(st *linkState, pos ports.Position) (*document.Document, int, error) {
	path := a.absPath(pos.Path)
	doc, ok := st.snapshot.Document(path)
	if !ok {
		return nil, 0, errors.AddContext(errors.New(errors.CodeNotFound, "document not in workspace"), errors.CtxPath, path)
	}
	if pos.Line == 0 {
		if pos.Offset < 0 || pos.Offset > len(doc.Source()) {
			return nil, 0, errors.AddContext(errors.New(errors.CodeValidationError, "offset out of range"), errors.CtxOffset, pos.Offset)
		}
		return doc, pos.Offset, nil
	}
	column := pos.Column
	if column == 0 {
		column = 1
	}
	offset, ok := doc.Lines().Offset(pos.Line, column)
	if !ok {
		err := errors.New(errors.CodeValidationError, fmt.Sprintf("position %d:%d out of range", pos.Line, column))
		return nil, 0, errors.AddContext(err, errors.CtxPath, path)
	}
	return doc, offset, nil
}

// Reconfigure applies the settings that can change while running: search
// workers and timeout, watch debounce and the relink rate. Workspace and
// type settings need a restart.
func (a *App) Reconfigure(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.mu.Lock()
	a.finder = a.newFinder(cfg.Search.Workers)
	a.searchTimeout = cfg.Search.Timeout
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
	}
	a.mu.Unlock()

	a.limiter.SetLimit(cfg.Watch.RelinkPerSecond, cfg.Watch.RelinkBurst)
	slog.Info("configuration reloaded",
		"search_workers", cfg.Search.Workers,
		"search_timeout", cfg.Search.Timeout,
		"debounce", cfg.Watch.Debounce,
		"relink_per_second", cfg.Watch.RelinkPerSecond,
	)
}

// Close flushes pending history writes and stops tracing.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.tracing != nil {
		if err := a.tracing(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(errs[0], errors.CodeInternal, "failed to close app")
	}
	return nil
}
