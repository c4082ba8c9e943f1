// Package event defines the notification contract shared by the server-side
// hub and the session sync core.
package event

import "time"

type Topic string

const (
	TopicOrderChanged     Topic = "order-changed"
	TopicPaymentChanged   Topic = "payment-changed"
	TopicInventoryChanged Topic = "inventory-changed"
	TopicNewOrder         Topic = "new-order"
)

func (t Topic) IsValid() bool {
	switch t {
	case TopicOrderChanged, TopicPaymentChanged, TopicInventoryChanged, TopicNewOrder:
		return true
	default:
		return false
	}
}

// Room is a coarse delivery group. Notifications are fanned out per room, not
// per order; subscribers filter by the identifiers carried in the payload.
type Room string

const (
	RoomAdmin Room = "admin"
	RoomStaff Room = "staff"
)

func (r Room) IsValid() bool {
	return r == RoomAdmin || r == RoomStaff
}

// AllRooms is the default fanout set for order and payment changes.
var AllRooms = []Room{RoomAdmin, RoomStaff}

// Notification is deliberately thin: identifier, server version and the
// changed fields in producer vocabulary. A receiver that has no record for
// the identifier point-fetches the full order instead of decoding it from the
// push payload. The server emits a notification only after the mutation's
// storage write is acknowledged, so per-order delivery never precedes its
// cause.
type Notification struct {
	EventID       string    `json:"event_id"`
	Topic         Topic     `json:"topic"`
	OrderID       string    `json:"order_id,omitempty"`
	EntityID      string    `json:"entity_id,omitempty"` // inventory notifications
	Status        string    `json:"status,omitempty"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Version       int64     `json:"version,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
