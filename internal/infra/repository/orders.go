package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/infra"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrdersRepository persists orders and their 1:1 payment records. Every
// accepted mutation bumps the order's version by exactly one inside the same
// transaction; the version is what reconciliation on the client side keys on.
type OrdersRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewOrdersRepository(pool *pgxpool.Pool, logger *slog.Logger) *OrdersRepository {
	return &OrdersRepository{pool: pool, logger: logger}
}

const orderColumns = `o.id, o.customer_name, o.table_number, o.order_type, o.items, o.total_cents,
	o.note, o.status, o.estimated_ready_at, o.version, o.placed_at, o.updated_at,
	p.method, p.status, p.reference, p.verified_by, p.verified_at`

func (r *OrdersRepository) scanOrder(row pgx.Row) (*order.Order, *order.Payment, error) {
	var (
		o         order.Order
		p         order.Payment
		itemsJSON []byte
		method    *string
		payStatus *string
		reference *string
		verified  *string
	)
	err := row.Scan(&o.ID, &o.CustomerName, &o.TableNumber, &o.Type, &itemsJSON, &o.TotalCents,
		&o.Note, &o.Status, &o.EstimatedReadyAt, &o.Version, &o.PlacedAt, &o.UpdatedAt,
		&method, &payStatus, &reference, &verified, &p.VerifiedAt)
	if err != nil {
		return nil, nil, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, nil, err
	}
	p.OrderID = o.ID
	if method != nil {
		p.Method = order.PaymentMethod(*method)
		o.PaymentMethod = p.Method
	}
	if payStatus != nil {
		p.Status = order.PaymentStatus(*payStatus)
		o.PaymentStatus = p.Status
	}
	if reference != nil {
		p.Reference = *reference
	}
	if verified != nil {
		p.VerifiedBy = *verified
	}
	return &o, &p, nil
}

// FindForUpdate locks the order row for the duration of the surrounding
// transaction so concurrent mutations on the same order serialize.
func (r *OrdersRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id string) (*order.Order, *order.Payment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.id = $1
		FOR UPDATE OF o`, id)
	o, p, err := r.scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "order not found", err)
		}
		return nil, nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "find order for update", err)
	}
	return o, p, nil
}

func (r *OrdersRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.id = $1`, id)
	o, _, err := r.scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "order not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "find order", err)
	}
	return o, nil
}

// ListActive returns all non-terminal orders, oldest first. Terminal orders
// stay queryable through the reporting path but never appear in the live
// list.
func (r *OrdersRepository) ListActive(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id
		WHERE o.status NOT IN ('completed', 'cancelled')
		ORDER BY o.placed_at`)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "list active orders", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, _, err := r.scanOrder(rows)
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "scan order row", err)
		}
		out = append(out, *o)
	}
	if rows.Err() != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "iterate order rows", rows.Err())
	}
	return out, nil
}

func (r *OrdersRepository) Insert(ctx context.Context, tx pgx.Tx, o *order.Order, p *order.Payment) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "marshal items", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, customer_name, table_number, order_type, items, total_cents,
			note, status, estimated_ready_at, version, placed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CustomerName, o.TableNumber, o.Type, itemsJSON, o.TotalCents,
		o.Note, o.Status, o.EstimatedReadyAt, o.Version, o.PlacedAt, o.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr(r.logger, infra.KindDuplicateKey, "order already exists", err)
		}
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "insert order", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO payments (order_id, method, status, reference, verified_by, verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.OrderID, p.Method, p.Status, p.Reference, p.VerifiedBy, p.VerifiedAt)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "insert payment", err)
	}
	return nil
}

// UpdateStatus writes the new status and the already-bumped version. The
// caller computes both under the row lock taken by FindForUpdate.
func (r *OrdersRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, st order.Status, est *time.Time, version int64, now time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2, estimated_ready_at = $3, version = $4, updated_at = $5
		WHERE id = $1`,
		id, st, est, version, now)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "update order status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "order not found", nil)
	}
	return nil
}

func (r *OrdersRepository) UpdatePayment(ctx context.Context, tx pgx.Tx, p *order.Payment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE payments
		SET method = $2, status = $3, reference = $4, verified_by = $5, verified_at = $6
		WHERE order_id = $1`,
		p.OrderID, p.Method, p.Status, p.Reference, p.VerifiedBy, p.VerifiedAt)
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "update payment", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr(r.logger, infra.KindNotFound, "payment not found", nil)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	return errors.As(err, &c) && c.SQLState() == "23505"
}
