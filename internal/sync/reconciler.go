package sync

import (
	"context"
	"log/slog"
	stdsync "sync"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"
)

// Fetcher is the point-fetch dependency, satisfied by Client.
type Fetcher interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
}

// Reconciler is the only writer to the Store. Every input (push
// notification, mutation result, poll snapshot, point fetch) funnels through
// one mutex and merges by server version: an update at or below the stored
// version is discarded regardless of arrival order.
//
// While the channel is stale (disconnected, or reconnected but not yet
// resynced) incremental updates are buffered and replayed after the next full
// snapshot, so a notification from the missed window can never be mistaken
// for current state.
type Reconciler struct {
	mu    stdsync.Mutex
	store *Store
	guard *Guard
	fetch Fetcher
	// wake nudges the poller when a point fetch fails and the store is left
	// without the record.
	wake   func()
	logger *slog.Logger

	stale    bool
	buffered []queuedUpdate

	onInventory []func(entityID string)
}

func NewReconciler(store *Store, guard *Guard, fetch Fetcher, logger *slog.Logger) *Reconciler {
	r := &Reconciler{
		store:  store,
		guard:  guard,
		fetch:  fetch,
		logger: logger,
		// Until the first snapshot lands the store is empty and untrusted.
		stale: true,
	}
	return r
}

// Bind wires the guard's release replay back into the apply path. Called once
// by the session before any input can arrive.
func (r *Reconciler) Bind(ctx context.Context) {
	r.guard.SetReplayFunc(func(u queuedUpdate) { r.applyUpdate(ctx, u) })
}

func (r *Reconciler) SetWake(fn func()) { r.wake = fn }

// OnInventoryChanged registers a callback for inventory notifications, which
// carry no order state and bypass the store entirely.
func (r *Reconciler) OnInventoryChanged(fn func(entityID string)) {
	r.onInventory = append(r.onInventory, fn)
}

// MarkStale flags the store as untrusted. Incremental updates buffer until
// ApplySnapshot clears the flag.
func (r *Reconciler) MarkStale() {
	r.mu.Lock()
	r.stale = true
	r.mu.Unlock()
}

func (r *Reconciler) Stale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale
}

func (r *Reconciler) ApplyNotification(ctx context.Context, n event.Notification) {
	if n.Topic == event.TopicInventoryChanged {
		for _, fn := range r.onInventory {
			fn(n.EntityID)
		}
		return
	}
	if n.OrderID == "" {
		r.logger.Warn("dropping notification without order id", "topic", string(n.Topic))
		return
	}
	notif := n
	r.applyUpdate(ctx, queuedUpdate{notif: &notif})
}

// ApplyRecord merges one full record, queueing behind an active guard.
func (r *Reconciler) ApplyRecord(ctx context.Context, o *order.Order) {
	r.applyUpdate(ctx, queuedUpdate{record: o})
}

// ApplyMutationResult merges the response of the session's own dispatched
// action. The caller still holds the guard, so this path must not queue; it
// writes straight through, and version merging keeps it idempotent.
func (r *Reconciler) ApplyMutationResult(o *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putIfNewer(o, "mutation result")
}

// ApplySnapshot merges a full active-order list and restores trust in
// incremental delivery. Records the snapshot no longer lists were completed
// or cancelled while this session was not looking; they are evicted unless a
// guard covers them. Buffered updates replay afterwards and version merging
// drops the ones the snapshot already covers.
func (r *Reconciler) ApplySnapshot(ctx context.Context, orders []order.Order) {
	r.mu.Lock()
	seen := make(map[string]struct{}, len(orders))
	for i := range orders {
		o := &orders[i]
		seen[o.ID] = struct{}{}
		if r.guard.Enqueue(o.ID, queuedUpdate{record: o}) {
			continue
		}
		r.putIfNewer(o, "snapshot")
	}
	for _, id := range r.store.IDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		if r.guard.Covering(id) {
			continue
		}
		r.store.Drop(id)
	}

	r.stale = false
	buffered := r.buffered
	r.buffered = nil
	r.mu.Unlock()

	for _, u := range buffered {
		r.applyUpdate(ctx, u)
	}
}

func (r *Reconciler) applyUpdate(ctx context.Context, u queuedUpdate) {
	id := u.orderID()
	r.mu.Lock()
	if r.stale {
		r.buffered = append(r.buffered, u)
		r.mu.Unlock()
		return
	}
	if r.guard.Enqueue(id, u) {
		r.mu.Unlock()
		return
	}

	if u.record != nil {
		r.putIfNewer(u.record, "record")
		r.mu.Unlock()
		return
	}

	n := u.notif
	current, known := r.store.Get(n.OrderID)
	if !known {
		// Thin payload, unknown order: fetch the full record.
		r.mu.Unlock()
		r.pointFetch(ctx, n.OrderID)
		return
	}
	if n.Version <= current.Version {
		r.logger.Debug("discarding stale notification",
			"order_id", n.OrderID, "version", n.Version, "stored_version", current.Version)
		r.mu.Unlock()
		return
	}

	patched, err := patchOrder(current, n)
	if err != nil {
		// Vocabulary this build does not know; the full record is authoritative.
		r.logger.Warn("notification carried unknown vocabulary, refetching",
			"order_id", n.OrderID, "error", err)
		r.mu.Unlock()
		r.pointFetch(ctx, n.OrderID)
		return
	}
	r.putIfNewer(patched, "notification")
	r.mu.Unlock()
}

// putIfNewer is the version merge. Caller holds r.mu.
func (r *Reconciler) putIfNewer(o *order.Order, source string) {
	if stored := r.store.Version(o.ID); stored >= o.Version && stored != 0 {
		r.logger.Debug("discarding superseded update",
			"order_id", o.ID, "source", source, "version", o.Version, "stored_version", stored)
		return
	}
	r.store.Put(o)
}

func (r *Reconciler) pointFetch(ctx context.Context, id string) {
	o, err := r.fetch.GetOrder(ctx, id)
	if err != nil {
		r.logger.Warn("point fetch failed", "order_id", id, "error", err)
		if r.wake != nil {
			r.wake()
		}
		return
	}
	r.applyUpdate(ctx, queuedUpdate{record: o})
}

func (u queuedUpdate) orderID() string {
	if u.record != nil {
		return u.record.ID
	}
	return u.notif.OrderID
}

// patchOrder overlays the fields a thin notification carries onto a copy of
// the stored record. Vocabulary normalizes here, the notification decode
// boundary.
func patchOrder(current *order.Order, n *event.Notification) (*order.Order, error) {
	patched := *current
	patched.Version = n.Version
	patched.UpdatedAt = n.OccurredAt

	if n.Status != "" {
		st, err := order.NormalizeStatus(n.Status)
		if err != nil {
			return nil, err
		}
		patched.Status = st
	}
	if n.PaymentStatus != "" {
		ps, err := order.NormalizePaymentStatus(n.PaymentStatus)
		if err != nil {
			return nil, err
		}
		patched.PaymentStatus = ps
	}
	if n.PaymentMethod != "" {
		patched.PaymentMethod = order.PaymentMethod(n.PaymentMethod)
	}
	return &patched, nil
}
