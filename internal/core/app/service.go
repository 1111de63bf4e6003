package app

import (
	"context"
	"time"

	"qmllink/internal/core/errors"
	"qmllink/internal/core/ports"
	"qmllink/internal/data/history"
	"qmllink/internal/engine/qml/complete"
	"qmllink/internal/engine/qml/interp"
	"qmllink/internal/engine/qml/scope"
	"qmllink/internal/output"
	"qmllink/internal/shared/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var _ ports.ResolverService = (*App)(nil)

// Check links the current snapshot and returns every parse, manifest and
// link diagnostic ordered by position.
func (a *App) Check(ctx context.Context) (ports.CheckResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Check")
	defer span.End()

	st, err := a.link(ctx)
	if err != nil {
		span.RecordError(err)
		return ports.CheckResult{}, err
	}
	return ports.CheckResult{
		Documents:   st.documents,
		Diagnostics: append(st.diagnostics[:0:0], st.diagnostics...),
	}, nil
}

// Usages finds every usage of the symbol at pos. The search is bounded by
// the configured timeout and recorded in the history when enabled; a
// timed out search returns the usages found so far with a CANCELLED error.
func (a *App) Usages(ctx context.Context, pos ports.Position) (output.UsageReport, error) {
	ctx, span := observability.Tracer.Start(ctx, "App.Usages",
		trace.WithAttributes(attribute.String("path", pos.Path)))
	defer span.End()

	a.mu.Lock()
	finder, timeout := a.finder, a.searchTimeout
	a.mu.Unlock()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	st, err := a.link(ctx)
	if err != nil {
		return output.UsageReport{}, err
	}
	doc, offset, err := a.resolve(st, pos)
	if err != nil {
		return output.UsageReport{}, err
	}

	observability.SearchesInFlight.Inc()
	defer observability.SearchesInFlight.Dec()

	started := time.Now()
	search := finder.Start(ctx, st.snapshot, nil, doc.Path(), offset)
	found, err := search.Collect()
	elapsed := time.Since(started)

	target := search.Target()
	report := output.UsageReport{
		ID:     search.ID(),
		Name:   target.Name,
		Kind:   target.Kind.String(),
		Usages: found,
	}
	observability.SearchDuration.WithLabelValues(report.Kind).Observe(elapsed.Seconds())
	observability.SearchUsagesTotal.Add(float64(search.Found()))
	span.SetAttributes(
		attribute.String("search.id", report.ID),
		attribute.String("search.name", report.Name),
		attribute.Int("search.usages", search.Found()),
	)

	if a.recorder != nil && target.Found() {
		rec := history.Search{
			ID:       report.ID,
			Path:     doc.Path(),
			Offset:   offset,
			Name:     report.Name,
			Kind:     report.Kind,
			Usages:   search.Found(),
			Duration: elapsed,
		}
		if err != nil {
			rec.Error = err.Error()
		}
		a.recorder.Record(rec)
	}
	if err != nil {
		span.RecordError(err)
		return report, err
	}
	return report, nil
}

// Complete lists the candidates visible at pos.
func (a *App) Complete(ctx context.Context, pos ports.Position) (complete.Result, error) {
	_, span := observability.Tracer.Start(ctx, "App.Complete")
	defer span.End()

	st, err := a.link(ctx)
	if err != nil {
		return complete.Result{}, err
	}
	doc, offset, err := a.resolve(st, pos)
	if err != nil {
		return complete.Result{}, err
	}
	res := complete.Complete(st.context, doc, offset)
	span.SetAttributes(attribute.Int("candidates", len(res.Candidates)))
	return res, nil
}

// ValueAt resolves the expression under pos.
func (a *App) ValueAt(ctx context.Context, pos ports.Position) (output.ValueReport, error) {
	st, err := a.link(ctx)
	if err != nil {
		return output.ValueReport{}, err
	}
	doc, offset, err := a.resolve(st, pos)
	if err != nil {
		return output.ValueReport{}, err
	}
	v := complete.ValueAt(st.context, doc, offset)
	if v == nil {
		return output.ValueReport{}, nil
	}
	report := output.ValueReport{Found: true, Type: interp.TypeName(v)}
	if o := interp.AsObject(v); o != nil {
		report.Members = o.MemberNames()
	}
	return report, nil
}

// Imports lists the explicit imports of every QML document after linking.
// The default and implicit directory imports are left out.
func (a *App) Imports(ctx context.Context) ([]output.ImportEdge, error) {
	st, err := a.link(ctx)
	if err != nil {
		return nil, err
	}
	var edges []output.ImportEdge
	for _, doc := range st.snapshot.Documents() {
		imps, ok := st.context.Imports(doc.Path())
		if !ok {
			continue
		}
		for _, imp := range imps.All() {
			if imp.Kind == scope.DefaultImport || imp.Kind == scope.ImplicitDirectoryImport {
				continue
			}
			edges = append(edges, output.ImportEdge{
				From:  doc.Path(),
				To:    imp.Name,
				Kind:  imp.Kind.String(),
				Valid: imp.Object != nil,
			})
		}
	}
	return edges, nil
}

// History returns the newest recorded searches of this project.
func (a *App) History(ctx context.Context, limit int) ([]history.Search, error) {
	if a.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "search history is disabled")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.FromContext(ctx)
	}
	if a.recorder != nil {
		a.recorder.Flush()
	}
	return a.history.LoadSearches(a.projectKey(), limit)
}
