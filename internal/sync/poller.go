package sync

import (
	"context"
	"log/slog"
	"time"

	"cafesync/internal/domain/order"
)

// Lister is the snapshot dependency, satisfied by Client.
type Lister interface {
	ListOrders(ctx context.Context) ([]order.Order, error)
}

// Poller fetches the full active-order list on a fixed interval and feeds it
// through the reconciler, the same merge path push updates take. It runs
// whether or not the event channel is healthy; the interval is the worst-case
// staleness bound when push delivery fails silently. Kick forces an immediate
// run, used on channel disconnect and after transport failures.
type Poller struct {
	api      Lister
	rec      *Reconciler
	interval time.Duration
	kick     chan struct{}
	logger   *slog.Logger
}

func NewPoller(api Lister, rec *Reconciler, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		api:      api,
		rec:      rec,
		interval: interval,
		kick:     make(chan struct{}, 1),
		logger:   logger,
	}
}

// Kick requests an immediate poll. Coalesces: kicking a poller that already
// has a pending run is a no-op.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.kick:
		}
		p.PollOnce(ctx)
	}
}

// PollOnce runs a single snapshot fetch and reconcile. A failed fetch leaves
// the store as is; if the session was stale it stays stale until a snapshot
// lands.
func (p *Poller) PollOnce(ctx context.Context) {
	orders, err := p.api.ListOrders(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("poll failed", "error", err)
		}
		return
	}
	p.rec.ApplySnapshot(ctx, orders)
	p.logger.Debug("poll applied", "orders", len(orders))
}
