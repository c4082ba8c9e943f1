//go:build unit || e2e

package builder

import (
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"

	"github.com/google/uuid"
)

type OrderBuilder struct {
	ID            string
	CustomerName  string
	TableNumber   string
	Type          order.Type
	Items         []order.LineItem
	Note          string
	Status        order.Status
	PaymentStatus order.PaymentStatus
	PaymentMethod order.PaymentMethod
	Reference     string
	Version       int64
	PlacedAt      time.Time
}

func NewOrderBuilder() *OrderBuilder {
	return &OrderBuilder{
		ID:           uuid.NewString(),
		CustomerName: "Sari",
		TableNumber:  "7",
		Type:         order.TypeDineIn,
		Items: []order.LineItem{
			{Name: "Es Kopi Susu", Quantity: 2, UnitCents: 24000},
			{Name: "Croissant", Quantity: 1, UnitCents: 18000},
		},
		Status:        order.StatusPendingVerification,
		PaymentStatus: order.PaymentPendingVerification,
		PaymentMethod: order.MethodQRIS,
		Reference:     "QR-20260828-001",
		Version:       1,
		PlacedAt:      time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
	}
}

func (b *OrderBuilder) With(mutate func(*OrderBuilder)) *OrderBuilder {
	mutate(b)
	return b
}

func (b *OrderBuilder) BuildDomain() *order.Order {
	var total int64
	for _, it := range b.Items {
		total += int64(it.Quantity) * it.UnitCents
	}
	return &order.Order{
		ID:            b.ID,
		CustomerName:  b.CustomerName,
		TableNumber:   b.TableNumber,
		Type:          b.Type,
		Items:         b.Items,
		TotalCents:    total,
		Note:          b.Note,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		PaymentMethod: b.PaymentMethod,
		Version:       b.Version,
		PlacedAt:      b.PlacedAt,
		UpdatedAt:     b.PlacedAt,
	}
}

func (b *OrderBuilder) BuildPayment() *order.Payment {
	return &order.Payment{
		OrderID:   b.ID,
		Method:    b.PaymentMethod,
		Status:    b.PaymentStatus,
		Reference: b.Reference,
	}
}

// BuildNotification derives the thin order-changed payload the hub would emit
// for the built state.
func (b *OrderBuilder) BuildNotification(topic event.Topic) event.Notification {
	return event.Notification{
		EventID:       uuid.NewString(),
		Topic:         topic,
		OrderID:       b.ID,
		Status:        b.Status.String(),
		PaymentStatus: b.PaymentStatus.String(),
		Version:       b.Version,
		OccurredAt:    b.PlacedAt,
	}
}
