package response

import (
	"time"

	"cafesync/internal/domain/order"
)

type LineItemResponse struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitCents int64  `json:"unit_cents"`
}

type OrderResponse struct {
	ID               string             `json:"id"`
	CustomerName     string             `json:"customer_name"`
	TableNumber      string             `json:"table_number,omitempty"`
	Type             string             `json:"type"`
	Items            []LineItemResponse `json:"items"`
	TotalCents       int64              `json:"total_cents"`
	Note             string             `json:"note,omitempty"`
	Status           string             `json:"status"`
	PaymentStatus    string             `json:"payment_status"`
	PaymentMethod    string             `json:"payment_method,omitempty"`
	EstimatedReadyAt *time.Time         `json:"estimated_ready_at,omitempty"`
	Version          int64              `json:"version"`
	PlacedAt         time.Time          `json:"placed_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// VerifyPaymentResponse carries the full post-verification order so callers
// can merge it by version without a follow-up fetch.
type VerifyPaymentResponse struct {
	Order           OrderResponse `json:"order"`
	AlreadyVerified bool          `json:"already_verified"`
}

func FromOrder(o *order.Order) OrderResponse {
	items := make([]LineItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItemResponse(it))
	}
	return OrderResponse{
		ID:               o.ID,
		CustomerName:     o.CustomerName,
		TableNumber:      o.TableNumber,
		Type:             string(o.Type),
		Items:            items,
		TotalCents:       o.TotalCents,
		Note:             o.Note,
		Status:           o.Status.String(),
		PaymentStatus:    o.PaymentStatus.String(),
		PaymentMethod:    o.PaymentMethod.String(),
		EstimatedReadyAt: o.EstimatedReadyAt,
		Version:          o.Version,
		PlacedAt:         o.PlacedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func FromOrders(orders []order.Order) OrderListResponse {
	out := OrderListResponse{Orders: make([]OrderResponse, 0, len(orders))}
	for i := range orders {
		out.Orders = append(out.Orders, FromOrder(&orders[i]))
	}
	return out
}
