package workers

import (
	"context"
	"time"

	"easemyday/internal/session"
)

// VisitorSweeper evicts visitors whose browser has been quiet for longer than
// IdleTimeout. Each instance sweeps its own visitors.
type VisitorSweeper struct {
	Sessions    *session.Manager
	IdleTimeout time.Duration
	RunInterval time.Duration
}

func (w *VisitorSweeper) Start(ctx context.Context) {
	StartPeriodicWorker(ctx, "visitor_sweeper", w.RunInterval, w.Tasks())
}

func (w *VisitorSweeper) Tasks() []WorkerTask {
	return []WorkerTask{{Name: "idle_visitors", Fn: w.sweep}}
}

func (w *VisitorSweeper) sweep(_ context.Context) (int, error) {
	return w.Sessions.Sweep(w.IdleTimeout), nil
}
