package sync

import (
	"log/slog"
	stdsync "sync"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"
)

// queuedUpdate is one deferred reconcile input: either a thin notification or
// a full record (point fetch and poll snapshots queue records).
type queuedUpdate struct {
	notif  *event.Notification
	record *order.Order
}

type guardEntry struct {
	acquiredAt time.Time
	queue      []queuedUpdate
	timer      *time.Timer
}

// Guard gives a dispatched mutation per-order exclusivity. While an order is
// covered, server-originated updates for it are queued instead of applied, so
// the mutation's own result lands in the store before anything that raced
// with it; the queue replays on release and version merging discards what the
// result superseded. A guard held past the timeout is force-released and
// logged as an anomaly, since the dispatcher is expected to release within
// one request round-trip.
type Guard struct {
	mu      stdsync.Mutex
	held    map[string]*guardEntry
	timeout time.Duration
	replay  func(u queuedUpdate)
	logger  *slog.Logger
}

func NewGuard(timeout time.Duration, logger *slog.Logger) *Guard {
	return &Guard{
		held:    make(map[string]*guardEntry),
		timeout: timeout,
		logger:  logger,
	}
}

// SetReplayFunc wires the release path back into the reconciler. Must be set
// before the session starts.
func (g *Guard) SetReplayFunc(fn func(u queuedUpdate)) {
	g.replay = fn
}

// Acquire takes the guard for one order. Returns false when a mutation for
// the same order is already in flight.
func (g *Guard) Acquire(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.held[orderID]; taken {
		return false
	}
	entry := &guardEntry{acquiredAt: time.Now()}
	entry.timer = time.AfterFunc(g.timeout, func() { g.forceRelease(orderID) })
	g.held[orderID] = entry
	return true
}

// Release drops the guard and replays queued updates in arrival order.
func (g *Guard) Release(orderID string) {
	g.mu.Lock()
	entry, ok := g.held[orderID]
	if !ok {
		g.mu.Unlock()
		return
	}
	entry.timer.Stop()
	delete(g.held, orderID)
	queue := entry.queue
	g.mu.Unlock()

	for _, u := range queue {
		g.replay(u)
	}
}

// Enqueue defers an update when its order is covered. The check and the
// append are one critical section, so an update can never slip past a guard
// acquired concurrently.
func (g *Guard) Enqueue(orderID string, u queuedUpdate) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.held[orderID]
	if !ok {
		return false
	}
	entry.queue = append(entry.queue, u)
	return true
}

func (g *Guard) Covering(orderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[orderID]
	return ok
}

func (g *Guard) forceRelease(orderID string) {
	g.mu.Lock()
	entry, ok := g.held[orderID]
	g.mu.Unlock()
	if !ok {
		return
	}
	g.logger.Error("mutation guard timed out, force releasing",
		"order_id", orderID,
		"held_for", time.Since(entry.acquiredAt).String(),
		"queued_updates", len(entry.queue))
	g.Release(orderID)
}
