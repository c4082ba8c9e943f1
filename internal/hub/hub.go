// Package hub fans notifications out to room subscribers. Delivery is
// at-most-once: a subscriber that cannot keep up has messages dropped rather
// than blocking the publisher; the polling fallback on the client covers the
// gap.
package hub

import (
	"log/slog"
	"sync"

	"cafesync/internal/event"
)

const subscriberBuffer = 64

type Subscription struct {
	Room event.Room
	C    <-chan event.Notification

	hub *Hub
	ch  chan event.Notification
}

func (s *Subscription) Close() {
	s.hub.unsubscribe(s)
}

type Hub struct {
	mu     sync.Mutex
	rooms  map[event.Room]map[*Subscription]struct{}
	relay  Relay
	logger *slog.Logger
}

// Relay forwards locally published notifications to sibling server instances.
// Nil means single-instance operation.
type Relay interface {
	Forward(room event.Room, n event.Notification)
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[event.Room]map[*Subscription]struct{}),
		logger: logger,
	}
}

func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

func (h *Hub) Join(room event.Room) *Subscription {
	ch := make(chan event.Notification, subscriberBuffer)
	sub := &Subscription{Room: room, C: ch, hub: h, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Subscription]struct{})
	}
	h.rooms[room][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[sub.Room]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
}

// Publish delivers to local subscribers of the given rooms and forwards to
// sibling instances through the relay.
func (h *Hub) Publish(n event.Notification, rooms ...event.Room) {
	h.deliver(n, rooms)

	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()
	if relay != nil {
		for _, room := range rooms {
			relay.Forward(room, n)
		}
	}
}

// DeliverLocal is the entry point for notifications arriving from the relay;
// it must not be forwarded again.
func (h *Hub) DeliverLocal(n event.Notification, rooms ...event.Room) {
	h.deliver(n, rooms)
}

func (h *Hub) deliver(n event.Notification, rooms []event.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range rooms {
		for sub := range h.rooms[room] {
			select {
			case sub.ch <- n:
			default:
				h.logger.Warn("dropping notification for slow subscriber",
					"room", string(room), "topic", string(n.Topic), "order_id", n.OrderID)
			}
		}
	}
}

func (h *Hub) SubscriberCount(room event.Room) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}
