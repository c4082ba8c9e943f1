//go:build unit

package sync_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"
	"cafesync/internal/sync"
	"cafesync/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMutator struct {
	changeFn  func(ctx context.Context, id string, to order.Status, est *time.Time) (*order.Order, error)
	verifyFn  func(ctx context.Context, id, by string, method order.PaymentMethod) (*order.Order, bool, error)
	changeLog []string
}

func (m *fakeMutator) ChangeStatus(ctx context.Context, id string, to order.Status, est *time.Time) (*order.Order, error) {
	m.changeLog = append(m.changeLog, id)
	return m.changeFn(ctx, id, to, est)
}

func (m *fakeMutator) VerifyPayment(ctx context.Context, id, by string, method order.PaymentMethod) (*order.Order, bool, error) {
	return m.verifyFn(ctx, id, by, method)
}

type dispatcherFixture struct {
	store *sync.Store
	guard *sync.Guard
	rec   *sync.Reconciler
	api   *fakeMutator
	disp  *sync.Dispatcher
	woken int
	ctx   context.Context
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	f := &dispatcherFixture{
		store: sync.NewStore(),
		guard: sync.NewGuard(time.Minute, logger),
		api:   &fakeMutator{},
		ctx:   context.Background(),
	}
	f.rec = sync.NewReconciler(f.store, f.guard, &fakeFetcher{orders: map[string]*order.Order{}}, logger)
	f.rec.Bind(f.ctx)
	f.disp = sync.NewDispatcher(f.api, f.store, f.guard, f.rec, logger)
	f.disp.SetWake(func() { f.woken++ })
	return f
}

func TestDispatcherChangeStatus(t *testing.T) {
	t.Run("applies mutation result and releases guard", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusConfirmed
		})
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})

		f.api.changeFn = func(_ context.Context, id string, to order.Status, _ *time.Time) (*order.Order, error) {
			return b.With(func(bb *builder.OrderBuilder) {
				bb.Status = to
				bb.Version = 2
			}).BuildDomain(), nil
		}

		updated, err := f.disp.ChangeStatus(f.ctx, b.ID, order.StatusPreparing, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)

		got, _ := f.store.Get(b.ID)
		assert.Equal(t, order.StatusPreparing, got.Status)
		assert.False(t, f.guard.Covering(b.ID))
	})

	t.Run("local pre-check fails fast without a round-trip", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusReady
		})
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})

		_, err := f.disp.ChangeStatus(f.ctx, b.ID, order.StatusPreparing, nil)
		assert.ErrorIs(t, err, sync.ErrInvalidTransition)
		assert.Empty(t, f.api.changeLog)
		assert.False(t, f.guard.Covering(b.ID))
	})

	t.Run("unknown local record defers to the server", func(t *testing.T) {
		f := newDispatcherFixture(t)
		f.rec.ApplySnapshot(f.ctx, nil)
		served := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusPreparing
			b.Version = 2
		}).BuildDomain()
		f.api.changeFn = func(_ context.Context, _ string, _ order.Status, _ *time.Time) (*order.Order, error) {
			return served, nil
		}

		_, err := f.disp.ChangeStatus(f.ctx, served.ID, order.StatusPreparing, nil)
		require.NoError(t, err)
		assert.Len(t, f.api.changeLog, 1)
	})

	t.Run("guard held rejects concurrent action", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusConfirmed
		})
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})
		require.True(t, f.guard.Acquire(b.ID))

		_, err := f.disp.ChangeStatus(f.ctx, b.ID, order.StatusPreparing, nil)
		assert.ErrorIs(t, err, sync.ErrGuardHeld)
		assert.Empty(t, f.api.changeLog)
	})

	t.Run("transport failure wakes poller and leaves store untouched", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusConfirmed
		})
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})

		f.api.changeFn = func(_ context.Context, _ string, _ order.Status, _ *time.Time) (*order.Order, error) {
			return nil, sync.ErrTransport
		}

		_, err := f.disp.ChangeStatus(f.ctx, b.ID, order.StatusPreparing, nil)
		assert.ErrorIs(t, err, sync.ErrTransport)
		assert.Equal(t, 1, f.woken)
		assert.False(t, f.guard.Covering(b.ID))

		got, _ := f.store.Get(b.ID)
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("notification racing the round-trip waits for release", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusConfirmed
		})
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})

		f.api.changeFn = func(ctx context.Context, id string, to order.Status, _ *time.Time) (*order.Order, error) {
			// Another session cancels while our request is in flight; its
			// notification arrives first.
			cancelled := builder.NewOrderBuilder().With(func(bb *builder.OrderBuilder) {
				bb.ID = id
				bb.Status = order.StatusCancelled
				bb.Version = 3
			}).BuildDomain()
			f.rec.ApplyNotification(ctx, notifFor(cancelled, event.TopicOrderChanged))

			midFlight, _ := f.store.Get(id)
			assert.Equal(t, int64(1), midFlight.Version, "racing update must queue behind the guard")

			return b.With(func(bb *builder.OrderBuilder) {
				bb.Status = to
				bb.Version = 2
			}).BuildDomain(), nil
		}

		_, err := f.disp.ChangeStatus(f.ctx, b.ID, order.StatusPreparing, nil)
		require.NoError(t, err)

		// After release the queued cancellation wins on version and evicts.
		_, ok := f.store.Get(b.ID)
		assert.False(t, ok)
	})
}

func TestDispatcherVerifyPayment(t *testing.T) {
	t.Run("success merges settled order", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder()
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})

		f.api.verifyFn = func(_ context.Context, _, _ string, method order.PaymentMethod) (*order.Order, bool, error) {
			return b.With(func(bb *builder.OrderBuilder) {
				bb.Status = order.StatusConfirmed
				bb.PaymentStatus = order.PaymentPaid
				bb.PaymentMethod = method
				bb.Version = 2
			}).BuildDomain(), false, nil
		}

		result, err := f.disp.VerifyPayment(f.ctx, b.ID, "admin-1", order.MethodQRIS)
		require.NoError(t, err)
		assert.False(t, result.AlreadyVerified)

		got, _ := f.store.Get(b.ID)
		assert.Equal(t, order.StatusConfirmed, got.Status)
		assert.Equal(t, order.PaymentPaid, got.PaymentStatus)
	})

	t.Run("already verified is success, not an error", func(t *testing.T) {
		f := newDispatcherFixture(t)
		b := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
			b.Status = order.StatusConfirmed
			b.PaymentStatus = order.PaymentPaid
			b.Version = 2
		})
		f.rec.ApplySnapshot(f.ctx, []order.Order{*b.BuildDomain()})

		f.api.verifyFn = func(_ context.Context, _, _ string, _ order.PaymentMethod) (*order.Order, bool, error) {
			return b.BuildDomain(), true, nil
		}

		result, err := f.disp.VerifyPayment(f.ctx, b.ID, "admin-2", order.MethodQRIS)
		require.NoError(t, err)
		assert.True(t, result.AlreadyVerified)
		assert.Equal(t, int64(2), result.Order.Version)
	})

	t.Run("invalid method fails before acquiring anything", func(t *testing.T) {
		f := newDispatcherFixture(t)
		_, err := f.disp.VerifyPayment(f.ctx, "o-1", "admin-1", order.PaymentMethod("iou"))
		assert.ErrorIs(t, err, sync.ErrInvalidMethod)
		assert.False(t, f.guard.Covering("o-1"))
	})
}
