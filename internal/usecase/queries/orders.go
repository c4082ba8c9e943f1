package queries

import (
	"context"

	"cafesync/internal/domain/order"
	"cafesync/internal/infra"
	"cafesync/internal/pkg/errs"
)

var ErrOrderNotFound = errs.New("order not found")

type OrderReader interface {
	ListActive(ctx context.Context) ([]order.Order, error)
	FindByID(ctx context.Context, id string) (*order.Order, error)
}

type OrderQueries interface {
	ListActive(ctx context.Context) ([]order.Order, error)
	GetByID(ctx context.Context, id string) (*order.Order, error)
}

type orderQueriesImpl struct {
	reader OrderReader
}

func NewOrderQueries(reader OrderReader) OrderQueries {
	return &orderQueriesImpl{reader: reader}
}

func (q *orderQueriesImpl) ListActive(ctx context.Context) ([]order.Order, error) {
	return q.reader.ListActive(ctx)
}

func (q *orderQueriesImpl) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := q.reader.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}
