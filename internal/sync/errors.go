// Package sync is the session-side synchronization core: an in-memory order
// store kept consistent with the server through push notifications, explicit
// mutation results and a polling fallback, merged by server version.
package sync

import "cafesync/internal/pkg/errs"

var (
	// ErrOrderNotFound maps the server's order_not_found code.
	ErrOrderNotFound = errs.New("order not found")
	// ErrInvalidTransition covers both the local pre-check and the server's
	// invalid_transition rejection.
	ErrInvalidTransition = errs.New("invalid status transition")
	ErrInvalidMethod     = errs.New("invalid payment method")
	ErrProofMissing      = errs.New("payment proof missing")
	// ErrTransport wraps network and non-contract HTTP failures. It never
	// reaches change callbacks; the dispatcher absorbs it, wakes the poller
	// and reports it to the caller of the failed action only.
	ErrTransport = errs.New("transport failure")
	// ErrGuardHeld is returned when an action targets an order that already
	// has a mutation in flight.
	ErrGuardHeld = errs.New("mutation already in flight for order")
)
