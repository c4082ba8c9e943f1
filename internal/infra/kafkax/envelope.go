package kafkax

import (
	"encoding/json"
	"time"

	"cafesync/internal/pkg/errs"
)

// Envelope wraps every message on the incoming orders topic. Payload carries
// the producer's own vocabulary; nothing here is normalized yet.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Producer   string          `json:"producer"`
	Payload    json.RawMessage `json:"payload"`
}

const EventOrderSubmitted = "OrderSubmitted"

type IncomingItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

// IncomingOrder is what the customer-facing ordering channel produces.
// Status and payment fields use the producer's raw vocabulary.
type IncomingOrder struct {
	OrderID          string         `json:"order_id"`
	CustomerName     string         `json:"customer_name"`
	TableNumber      string         `json:"table_number,omitempty"`
	OrderType        string         `json:"order_type"`
	Items            []IncomingItem `json:"items"`
	TotalCents       int64          `json:"total_cents"`
	Note             string         `json:"note,omitempty"`
	Status           string         `json:"status"`
	PaymentMethod    string         `json:"payment_method,omitempty"`
	PaymentStatus    string         `json:"payment_status,omitempty"`
	PaymentReference string         `json:"payment_reference,omitempty"`
	PlacedAt         time.Time      `json:"placed_at"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, errs.Wrap(err, "decode envelope")
	}
	return env, nil
}

func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, errs.Wrap(err, "decode payload")
	}
	return t, nil
}
