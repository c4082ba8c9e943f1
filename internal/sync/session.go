package sync

import (
	"context"
	"log/slog"
	"sort"
	stdsync "sync"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"
	"cafesync/internal/pkg/config"
)

// API is everything the session needs from the server, satisfied by Client.
type API interface {
	Fetcher
	Lister
	Mutator
}

// Session is one admin or staff terminal's view of the order board. It owns a
// Store, keeps it converged with the server through the event channel and the
// polling fallback, and dispatches the operator's actions.
//
// Change callbacks fire on the goroutine that applied the update. They must
// not call ChangeStatus or VerifyPayment synchronously; hand actions off to
// another goroutine.
type Session struct {
	store      *Store
	guard      *Guard
	rec        *Reconciler
	dispatcher *Dispatcher
	poller     *Poller
	channel    EventChannel
	logger     *slog.Logger
}

func NewSession(cfg config.SyncConfig, api API, channel EventChannel, logger *slog.Logger) *Session {
	store := NewStore()
	guard := NewGuard(cfg.GuardTimeout, logger)
	rec := NewReconciler(store, guard, api, logger)
	dispatcher := NewDispatcher(api, store, guard, rec, logger)
	poller := NewPoller(api, rec, cfg.PollInterval, logger)

	rec.SetWake(poller.Kick)
	dispatcher.SetWake(poller.Kick)

	return &Session{
		store:      store,
		guard:      guard,
		rec:        rec,
		dispatcher: dispatcher,
		poller:     poller,
		channel:    channel,
		logger:     logger,
	}
}

// Run connects the channel, performs the initial resync and blocks until ctx
// is done. Callbacks must be registered before Run.
func (s *Session) Run(ctx context.Context) {
	s.rec.Bind(ctx)
	s.channel.OnNotification(func(n event.Notification) { s.rec.ApplyNotification(ctx, n) })
	s.channel.OnConnected(func() {
		// A reconnect may hide a missed window. Distrust increments until
		// the next snapshot lands.
		s.rec.MarkStale()
		s.poller.Kick()
	})
	s.channel.OnDisconnected(func(err error) {
		s.rec.MarkStale()
		s.poller.Kick()
	})

	// Initial resync before the channel opens, so the first notifications
	// merge against real state instead of buffering behind an empty store.
	s.poller.PollOnce(ctx)

	var wg stdsync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.channel.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		s.poller.Run(ctx)
	}()
	wg.Wait()
}

// Orders returns a snapshot of every active order, oldest first.
func (s *Session) Orders() []order.Order {
	orders := s.store.Snapshot()
	sort.Slice(orders, func(i, j int) bool { return orders[i].PlacedAt.Before(orders[j].PlacedAt) })
	return orders
}

// OrdersByBucket returns the snapshot for one display tab, oldest first.
func (s *Session) OrdersByBucket(b order.Bucket) []order.Order {
	orders := s.store.ByBucket(b)
	sort.Slice(orders, func(i, j int) bool { return orders[i].PlacedAt.Before(orders[j].PlacedAt) })
	return orders
}

func (s *Session) Order(id string) (*order.Order, bool) {
	return s.store.Get(id)
}

// Stale reports whether the store is awaiting a resync.
func (s *Session) Stale() bool {
	return s.rec.Stale()
}

// OnChange registers a store change callback. Register before Run.
func (s *Session) OnChange(fn func(Change)) {
	s.store.Subscribe(fn)
}

// OnInventoryChanged registers an inventory refresh callback. Register
// before Run.
func (s *Session) OnInventoryChanged(fn func(entityID string)) {
	s.rec.OnInventoryChanged(fn)
}

func (s *Session) ChangeStatus(ctx context.Context, orderID string, to order.Status, estimatedReadyAt *time.Time) (*order.Order, error) {
	return s.dispatcher.ChangeStatus(ctx, orderID, to, estimatedReadyAt)
}

func (s *Session) VerifyPayment(ctx context.Context, orderID, verifiedBy string, method order.PaymentMethod) (*VerifyPaymentResult, error) {
	return s.dispatcher.VerifyPayment(ctx, orderID, verifiedBy, method)
}
