package app

import (
	"context"
	"log/slog"

	"qmllink/internal/core/config"
	"qmllink/internal/core/ports"
	"qmllink/internal/core/watcher"
	"qmllink/internal/shared/observability"
)

// Watch follows file changes below the roots and import paths until ctx
// ends. Each batch of changes is applied to the workspace and, at most at
// the configured relink rate, the snapshot is relinked and onUpdate
// receives the new diagnostics. Batches arriving while a relink waits are
// merged into it.
func (a *App) Watch(ctx context.Context, onUpdate func(ports.CheckResult)) error {
	changes := make(chan []string, 16)
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Workspace.Exclude.Dirs,
		a.Config.Workspace.Exclude.Files,
		func(paths []string) {
			select {
			case changes <- paths:
			case <-ctx.Done():
			}
		},
	)
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := append(append([]string(nil), a.Paths.Roots...), a.Paths.ImportPaths...)
	if err := w.Watch(dirs); err != nil {
		return err
	}
	a.mu.Lock()
	a.activeWatcher = w
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.activeWatcher = nil
		a.mu.Unlock()
	}()
	slog.Info("watching workspace", "dirs", len(dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			changed := a.applyChanges(paths)
			if !changed {
				observability.RelinksTotal.WithLabelValues("skipped").Inc()
				continue
			}
			if err := a.limiter.Wait(ctx, 1); err != nil {
				return nil
			}
		drain:
			for {
				select {
				case more := <-changes:
					a.applyChanges(more)
				default:
					break drain
				}
			}

			res, err := a.Check(ctx)
			if err != nil {
				observability.RelinksTotal.WithLabelValues("error").Inc()
				slog.Error("relink failed", "error", err)
				continue
			}
			observability.RelinksTotal.WithLabelValues("ok").Inc()
			if onUpdate != nil {
				onUpdate(res)
			}
		}
	}
}

func (a *App) applyChanges(paths []string) bool {
	ch, err := a.workspace.Apply(paths)
	if err != nil {
		slog.Warn("failed to apply file changes", "count", len(paths), "error", err)
	}
	if !ch.Empty() {
		slog.Info("detected changes", "updated", len(ch.Updated), "removed", len(ch.Removed))
	}
	return !ch.Empty()
}

// WatchConfig reloads path when it changes and applies the new settings
// through Reconfigure until ctx ends.
func (a *App) WatchConfig(ctx context.Context, path string) error {
	cw := config.NewWatcher(path, a.Reconfigure)
	if err := cw.Start(ctx); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		cw.Stop()
	}()
	return nil
}
