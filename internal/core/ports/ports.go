// Package ports defines the interfaces driving adapters (the CLI, the
// observability server) use to talk to the core.
package ports

import (
	"context"

	"qmllink/internal/data/history"
	"qmllink/internal/engine/qml/complete"
	"qmllink/internal/engine/qml/document"
	"qmllink/internal/output"
)

// Position addresses a point in a document. Offset is a byte offset and
// wins when Line is zero; otherwise Line and Column are 1-based and the
// column counts runes.
type Position struct {
	Path   string
	Offset int
	Line   int
	Column int
}

// CheckResult is the outcome of linking the current snapshot.
type CheckResult struct {
	Documents   int
	Diagnostics []document.Diagnostic
}

// HasErrors reports whether any diagnostic has error severity.
func (r CheckResult) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == document.Error {
			return true
		}
	}
	return false
}

// ResolverService is the core use-case surface.
type ResolverService interface {
	Check(ctx context.Context) (CheckResult, error)
	Usages(ctx context.Context, pos Position) (output.UsageReport, error)
	Complete(ctx context.Context, pos Position) (complete.Result, error)
	ValueAt(ctx context.Context, pos Position) (output.ValueReport, error)
	Imports(ctx context.Context) ([]output.ImportEdge, error)
	History(ctx context.Context, limit int) ([]history.Search, error)
	SetBuffer(path string, source []byte)
	ClearBuffer(path string)
	Close(ctx context.Context) error
}

// HistoryStore abstracts search persistence.
type HistoryStore interface {
	SaveSearch(rec history.Search) (history.Search, error)
	LoadSearches(projectKey string, limit int) ([]history.Search, error)
	Prune(projectKey string, keep int) (int64, error)
	Count(projectKey string) (int, error)
	Close() error
}
