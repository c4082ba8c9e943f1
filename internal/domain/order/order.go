package order

import "time"

type Type string

const (
	TypeDineIn  Type = "dine_in"
	TypeTakeout Type = "takeout"
)

func (t Type) IsValid() bool {
	return t == TypeDineIn || t == TypeTakeout
}

type LineItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

// Order is the record synchronized between sessions. Status, PaymentStatus,
// PaymentMethod and EstimatedReadyAt are the only mutable fields; everything
// else is fixed when the customer submits the order. Version is assigned by
// the server and increases by one on every accepted mutation; it is the sole
// merge key for reconciliation, never arrival order.
type Order struct {
	ID               string        `json:"id"`
	CustomerName     string        `json:"customer_name"`
	TableNumber      string        `json:"table_number,omitempty"` // empty for takeout
	Type             Type          `json:"type"`
	Items            []LineItem    `json:"items"`
	TotalCents       int64         `json:"total_cents"`
	Note             string        `json:"note,omitempty"`
	Status           Status        `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	PaymentMethod    PaymentMethod `json:"payment_method,omitempty"`
	EstimatedReadyAt *time.Time    `json:"estimated_ready_at,omitempty"`
	Version          int64         `json:"version"`
	PlacedAt         time.Time     `json:"placed_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

func (o *Order) IsTerminal() bool {
	return o.Status.IsTerminal()
}
