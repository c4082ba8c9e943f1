package sync

import (
	"context"

	"cafesync/internal/event"
)

// EventChannel is the push transport a session receives notifications on.
// The session depends on this interface only, so tests drive reconciliation
// with an in-memory fake instead of a live stream.
//
// Implementations deliver at most once: a dropped or unparseable frame is
// skipped, never retried. Callbacks must be registered before Start and are
// invoked from the channel's own goroutine.
type EventChannel interface {
	// Start connects and keeps the subscription alive until ctx is done,
	// reconnecting on failure. It returns only after the channel shuts down.
	Start(ctx context.Context)

	// OnNotification registers the delivery callback.
	OnNotification(fn func(event.Notification))

	// OnConnected fires after every successful (re)connect. Incremental
	// notifications received after this point may postdate a missed window,
	// so the session resyncs before trusting them.
	OnConnected(fn func())

	// OnDisconnected fires when the subscription is lost, with the cause.
	OnDisconnected(fn func(err error))
}
