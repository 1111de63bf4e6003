package app

import (
	"log/slog"
	"sync"

	"qmllink/internal/core/ports"
	"qmllink/internal/data/history"
)

const (
	recorderCapacity = 64
	pruneEvery       = 50
)

// recorder writes search records in the background so searches never wait
// on SQLite. Every pruneEvery writes the project's history is trimmed to
// keep rows.
type recorder struct {
	store   ports.HistoryStore
	project string
	keep    int

	queue chan recordRequest
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

type recordRequest struct {
	search history.Search
	// flushed is closed once every earlier request has been written.
	flushed chan struct{}
}

func newRecorder(store ports.HistoryStore, project string, keep int) *recorder {
	r := &recorder{
		store:   store,
		project: project,
		keep:    keep,
		queue:   make(chan recordRequest, recorderCapacity),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *recorder) run() {
	defer close(r.done)
	written := 0
	for req := range r.queue {
		if req.flushed != nil {
			close(req.flushed)
			continue
		}
		rec := req.search
		rec.ProjectKey = r.project
		if _, err := r.store.SaveSearch(rec); err != nil {
			slog.Warn("failed to record search", "id", rec.ID, "error", err)
			continue
		}
		written++
		if r.keep > 0 && written%pruneEvery == 0 {
			if n, err := r.store.Prune(r.project, r.keep); err != nil {
				slog.Warn("failed to prune search history", "error", err)
			} else if n > 0 {
				slog.Debug("pruned search history", "deleted", n)
			}
		}
	}
}

// Record queues rec. It drops the record when the queue is full.
func (r *recorder) Record(rec history.Search) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- recordRequest{search: rec}:
	default:
		slog.Warn("search history queue full, dropping record", "id", rec.ID)
	}
}

// Flush waits until every queued record has been written.
func (r *recorder) Flush() {
	flushed := make(chan struct{})
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue <- recordRequest{flushed: flushed}
	r.mu.Unlock()
	<-flushed
}

// Close drains the queue and stops the writer.
func (r *recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}
