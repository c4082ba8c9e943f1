package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cafesync/internal/domain/order"
)

// Mutator is the action round-trip dependency, satisfied by Client.
type Mutator interface {
	ChangeStatus(ctx context.Context, id string, to order.Status, estimatedReadyAt *time.Time) (*order.Order, error)
	VerifyPayment(ctx context.Context, id, verifiedBy string, method order.PaymentMethod) (*order.Order, bool, error)
}

// Dispatcher runs user-triggered mutations. Each action takes the per-order
// guard for exactly one HTTP round-trip: acquire, call, merge the result,
// release. There are no automatic retries; a failed action surfaces its error
// and the next poll restores whatever state the server settled on.
type Dispatcher struct {
	api    Mutator
	store  *Store
	guard  *Guard
	rec    *Reconciler
	wake   func()
	logger *slog.Logger
}

func NewDispatcher(api Mutator, store *Store, guard *Guard, rec *Reconciler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		api:    api,
		store:  store,
		guard:  guard,
		rec:    rec,
		logger: logger,
	}
}

// SetWake wires the poller nudge used after transport failures.
func (d *Dispatcher) SetWake(fn func()) { d.wake = fn }

// ChangeStatus moves an order to the given state. Transitions the local
// record already rules out fail fast without a round-trip; the server stays
// the authority for everything else.
func (d *Dispatcher) ChangeStatus(ctx context.Context, orderID string, to order.Status, estimatedReadyAt *time.Time) (*order.Order, error) {
	if local, ok := d.store.Get(orderID); ok && !order.CanTransition(local.Status, to) {
		return nil, ErrInvalidTransition
	}

	if !d.guard.Acquire(orderID) {
		return nil, ErrGuardHeld
	}
	defer d.guard.Release(orderID)

	updated, err := d.api.ChangeStatus(ctx, orderID, to, estimatedReadyAt)
	if err != nil {
		return nil, d.absorb(err, "change status", orderID)
	}
	d.rec.ApplyMutationResult(updated)
	return updated, nil
}

// VerifyPaymentResult reports the settled order. AlreadyVerified means
// another session verified first; the action still succeeded.
type VerifyPaymentResult struct {
	Order           *order.Order
	AlreadyVerified bool
}

func (d *Dispatcher) VerifyPayment(ctx context.Context, orderID, verifiedBy string, method order.PaymentMethod) (*VerifyPaymentResult, error) {
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}

	if !d.guard.Acquire(orderID) {
		return nil, ErrGuardHeld
	}
	defer d.guard.Release(orderID)

	updated, alreadyVerified, err := d.api.VerifyPayment(ctx, orderID, verifiedBy, method)
	if err != nil {
		return nil, d.absorb(err, "verify payment", orderID)
	}
	d.rec.ApplyMutationResult(updated)
	if alreadyVerified {
		d.logger.Info("payment already verified by another session", "order_id", orderID)
	}
	return &VerifyPaymentResult{Order: updated, AlreadyVerified: alreadyVerified}, nil
}

// absorb logs the failure and, for transport errors, wakes the poller so the
// store converges even though the action's outcome on the server is unknown.
func (d *Dispatcher) absorb(err error, action, orderID string) error {
	d.logger.Warn("action failed", "action", action, "order_id", orderID, "error", err)
	if errors.Is(err, ErrTransport) && d.wake != nil {
		d.wake()
	}
	return err
}
