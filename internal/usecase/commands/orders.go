package commands

import (
	"context"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"
	"cafesync/internal/infra"
	"cafesync/internal/infra/kafkax"
	"cafesync/internal/pkg/clock"
	"cafesync/internal/pkg/errs"
	"cafesync/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrOrderNotFound           = errs.New("order not found")
	ErrInvalidTransition       = errs.New("invalid status transition")
	ErrInvalidMethod           = errs.New("invalid payment method")
	ErrPaymentProofMissing     = errs.New("payment proof missing")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

type OrderRepository interface {
	FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*order.Order, *order.Payment, error)
	Insert(ctx context.Context, tx pgx.Tx, o *order.Order, p *order.Payment) error
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, st order.Status, est *time.Time, version int64, now time.Time) error
	UpdatePayment(ctx context.Context, tx pgx.Tx, p *order.Payment) error
	FindByID(ctx context.Context, id string) (*order.Order, error)
}

// Publisher is satisfied by hub.Hub. Commands publish only after the
// transaction committed, which is what keeps per-order notifications causally
// ordered behind their storage writes.
type Publisher interface {
	Publish(n event.Notification, rooms ...event.Room)
}

// StatusCache is satisfied by redisx.StatusCache.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, st order.Status)
}

type VerifyPaymentResult struct {
	Order           *order.Order
	AlreadyVerified bool
}

type OrderCommands interface {
	ChangeStatus(ctx context.Context, orderID string, to order.Status, estimatedReadyAt *time.Time) (*order.Order, error)
	VerifyPayment(ctx context.Context, orderID, verifiedBy string, method order.PaymentMethod) (*VerifyPaymentResult, error)
	IngestOrder(ctx context.Context, in kafkax.IncomingOrder) (*order.Order, error)
}

type orderCommandsImpl struct {
	repo  OrderRepository
	pub   Publisher
	cache StatusCache
	db    shared.TxBeginner
	clock clock.Clock
}

func NewOrderCommands(repo OrderRepository, pub Publisher, cache StatusCache, db shared.TxBeginner, clk clock.Clock) OrderCommands {
	return &orderCommandsImpl{
		repo:  repo,
		pub:   pub,
		cache: cache,
		db:    db,
		clock: clk,
	}
}

// ChangeStatus applies one operator-triggered transition. Entering confirmed
// is reserved for VerifyPayment, which checks the payment precondition first.
func (c *orderCommandsImpl) ChangeStatus(ctx context.Context, orderID string, to order.Status, estimatedReadyAt *time.Time) (*order.Order, error) {
	if to == order.StatusConfirmed {
		return nil, ErrInvalidTransition
	}

	now := c.clock.Now().UTC()
	updated, err := shared.RunInTx(ctx, c.db, func(tx pgx.Tx) (*order.Order, error) {
		o, _, err := c.repo.FindForUpdate(ctx, tx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if !order.CanTransition(o.Status, to) {
			return nil, ErrInvalidTransition
		}

		o.Status = to
		if estimatedReadyAt != nil {
			o.EstimatedReadyAt = estimatedReadyAt
		}
		o.Version++
		o.UpdatedAt = now
		if err := c.repo.UpdateStatus(ctx, tx, o.ID, o.Status, o.EstimatedReadyAt, o.Version, now); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return o, nil
	})
	if err != nil {
		return nil, err
	}

	c.cache.SetStatus(ctx, updated.ID, updated.Status)
	c.pub.Publish(c.orderChanged(updated, now), event.AllRooms...)
	if updated.Status == order.StatusPreparing {
		// The kitchen starts consuming stock; inventory screens refresh.
		c.pub.Publish(event.Notification{
			EventID:    uuid.NewString(),
			Topic:      event.TopicInventoryChanged,
			EntityID:   updated.ID,
			OccurredAt: now,
		}, event.AllRooms...)
	}
	return updated, nil
}

// VerifyPayment is idempotent: verifying an already-paid order returns the
// existing confirmed state and broadcasts nothing.
func (c *orderCommandsImpl) VerifyPayment(ctx context.Context, orderID, verifiedBy string, method order.PaymentMethod) (*VerifyPaymentResult, error) {
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}

	now := c.clock.Now().UTC()
	result, err := shared.RunInTx(ctx, c.db, func(tx pgx.Tx) (*VerifyPaymentResult, error) {
		o, p, err := c.repo.FindForUpdate(ctx, tx, orderID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil, ErrOrderNotFound
			}
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if p.Status == order.PaymentPaid {
			return &VerifyPaymentResult{Order: o, AlreadyVerified: true}, nil
		}
		if o.Status != order.StatusPendingVerification {
			return nil, ErrInvalidTransition
		}
		if method != order.MethodCash && p.Reference == "" {
			return nil, ErrPaymentProofMissing
		}

		p.Method = method
		p.Status = order.PaymentPaid
		p.VerifiedBy = verifiedBy
		p.VerifiedAt = &now
		if err := c.repo.UpdatePayment(ctx, tx, p); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}

		o.Status = order.StatusConfirmed
		o.PaymentStatus = order.PaymentPaid
		o.PaymentMethod = method
		o.Version++
		o.UpdatedAt = now
		if err := c.repo.UpdateStatus(ctx, tx, o.ID, o.Status, o.EstimatedReadyAt, o.Version, now); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return &VerifyPaymentResult{Order: o}, nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyVerified {
		c.cache.SetStatus(ctx, result.Order.ID, result.Order.Status)
		c.pub.Publish(event.Notification{
			EventID:       uuid.NewString(),
			Topic:         event.TopicPaymentChanged,
			OrderID:       result.Order.ID,
			PaymentStatus: result.Order.PaymentStatus.String(),
			PaymentMethod: result.Order.PaymentMethod.String(),
			Version:       result.Order.Version,
			OccurredAt:    now,
		}, event.AllRooms...)
		c.pub.Publish(c.orderChanged(result.Order, now), event.AllRooms...)
	}
	return result, nil
}

// IngestOrder materializes an order submitted through the customer-facing
// channel. The payload arrives in producer vocabulary and is normalized here,
// at the ingress boundary, so the store never holds an unrecognized status.
// Redelivery of the same order id is a no-op (Kafka is at-least-once).
func (c *orderCommandsImpl) IngestOrder(ctx context.Context, in kafkax.IncomingOrder) (*order.Order, error) {
	st, err := order.NormalizeStatus(in.Status)
	if err != nil {
		return nil, err
	}
	payStatus := order.PaymentPending
	if in.PaymentStatus != "" {
		if payStatus, err = order.NormalizePaymentStatus(in.PaymentStatus); err != nil {
			return nil, err
		}
	}
	orderType := order.Type(in.OrderType)
	if !orderType.IsValid() {
		orderType = order.TypeTakeout
		if in.TableNumber != "" {
			orderType = order.TypeDineIn
		}
	}

	now := c.clock.Now().UTC()
	o := &order.Order{
		ID:            in.OrderID,
		CustomerName:  in.CustomerName,
		TableNumber:   in.TableNumber,
		Type:          orderType,
		TotalCents:    in.TotalCents,
		Note:          in.Note,
		Status:        st,
		PaymentStatus: payStatus,
		PaymentMethod: order.PaymentMethod(in.PaymentMethod),
		Version:       1,
		PlacedAt:      in.PlacedAt,
		UpdatedAt:     now,
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = now
	}
	for _, it := range in.Items {
		o.Items = append(o.Items, order.LineItem{Name: it.Name, Quantity: it.Quantity, UnitCents: it.UnitCents})
	}
	p := &order.Payment{
		OrderID:   o.ID,
		Method:    o.PaymentMethod,
		Status:    payStatus,
		Reference: in.PaymentReference,
	}

	inserted, err := shared.RunInTx(ctx, c.db, func(tx pgx.Tx) (*order.Order, error) {
		if err := c.repo.Insert(ctx, tx, o, p); err != nil {
			return nil, err
		}
		return o, nil
	})
	if err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return c.repo.FindByID(ctx, in.OrderID)
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	c.cache.SetStatus(ctx, inserted.ID, inserted.Status)
	c.pub.Publish(event.Notification{
		EventID:    uuid.NewString(),
		Topic:      event.TopicNewOrder,
		OrderID:    inserted.ID,
		Status:     inserted.Status.String(),
		Version:    inserted.Version,
		OccurredAt: now,
	}, event.AllRooms...)
	return inserted, nil
}

func (c *orderCommandsImpl) orderChanged(o *order.Order, now time.Time) event.Notification {
	return event.Notification{
		EventID:       uuid.NewString(),
		Topic:         event.TopicOrderChanged,
		OrderID:       o.ID,
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		Version:       o.Version,
		OccurredAt:    now,
	}
}
