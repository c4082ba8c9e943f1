//go:build unit

package sync_test

import (
	"context"
	"log/slog"
	stdsync "sync"
	"testing"
	"time"

	"cafesync/internal/domain/order"
	"cafesync/internal/event"
	"cafesync/internal/pkg/config"
	"cafesync/internal/sync"
	"cafesync/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel drives reconciliation from the test instead of a live stream.
type fakeChannel struct {
	mu             stdsync.Mutex
	onNotification func(event.Notification)
	onConnected    func()
	onDisconnected func(err error)
	started        chan struct{}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{started: make(chan struct{})}
}

func (c *fakeChannel) Start(ctx context.Context) {
	close(c.started)
	<-ctx.Done()
}

func (c *fakeChannel) OnNotification(fn func(event.Notification)) { c.onNotification = fn }
func (c *fakeChannel) OnConnected(fn func())                      { c.onConnected = fn }
func (c *fakeChannel) OnDisconnected(fn func(err error))          { c.onDisconnected = fn }

func (c *fakeChannel) emit(n event.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotification(n)
}

func (c *fakeChannel) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnected(sync.ErrTransport)
}

func (c *fakeChannel) reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected()
}

// fakeAPI serves the session's fetch and mutation round-trips.
type fakeAPI struct {
	mu     stdsync.Mutex
	orders map[string]*order.Order
}

func newFakeAPI(orders ...*order.Order) *fakeAPI {
	api := &fakeAPI{orders: map[string]*order.Order{}}
	for _, o := range orders {
		api.orders[o.ID] = o
	}
	return api
}

func (a *fakeAPI) setOrder(o *order.Order) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders[o.ID] = o
}

func (a *fakeAPI) ListOrders(context.Context) ([]order.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]order.Order, 0, len(a.orders))
	for _, o := range a.orders {
		if !o.IsTerminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (a *fakeAPI) GetOrder(_ context.Context, id string) (*order.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[id]
	if !ok {
		return nil, sync.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (a *fakeAPI) ChangeStatus(_ context.Context, id string, to order.Status, est *time.Time) (*order.Order, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[id]
	if !ok {
		return nil, sync.ErrOrderNotFound
	}
	if !order.CanTransition(o.Status, to) {
		return nil, sync.ErrInvalidTransition
	}
	o.Status = to
	o.EstimatedReadyAt = est
	o.Version++
	cp := *o
	return &cp, nil
}

func (a *fakeAPI) VerifyPayment(_ context.Context, id, _ string, method order.PaymentMethod) (*order.Order, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	o, ok := a.orders[id]
	if !ok {
		return nil, false, sync.ErrOrderNotFound
	}
	if o.PaymentStatus == order.PaymentPaid {
		cp := *o
		return &cp, true, nil
	}
	o.Status = order.StatusConfirmed
	o.PaymentStatus = order.PaymentPaid
	o.PaymentMethod = method
	o.Version++
	cp := *o
	return &cp, false, nil
}

type sessionFixture struct {
	api     *fakeAPI
	channel *fakeChannel
	session *sync.Session
	changes chan sync.Change
	cancel  context.CancelFunc
}

func startSession(t *testing.T, orders ...*order.Order) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		api:     newFakeAPI(orders...),
		channel: newFakeChannel(),
		changes: make(chan sync.Change, 32),
	}
	cfg := config.NewTestConfig().Sync
	cfg.PollInterval = time.Hour // only explicit kicks in tests
	f.session = sync.NewSession(cfg, f.api, f.channel, slog.New(slog.DiscardHandler))
	f.session.OnChange(func(c sync.Change) { f.changes <- c })

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)
	go f.session.Run(ctx)

	select {
	case <-f.channel.started:
	case <-time.After(time.Second):
		t.Fatal("session did not start")
	}
	return f
}

func (f *sessionFixture) waitChange(t *testing.T) sync.Change {
	t.Helper()
	select {
	case c := <-f.changes:
		return c
	case <-time.After(time.Second):
		t.Fatal("no store change observed")
		return sync.Change{}
	}
}

func TestSessionInitialResync(t *testing.T) {
	older := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
		b.PlacedAt = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	}).BuildDomain()
	newer := builder.NewOrderBuilder().With(func(b *builder.OrderBuilder) {
		b.PlacedAt = time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC)
	}).BuildDomain()
	f := startSession(t, newer, older)

	f.waitChange(t)
	f.waitChange(t)
	require.False(t, f.session.Stale())

	orders := f.session.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, older.ID, orders[0].ID, "oldest first")
}

func TestSessionAppliesPushNotifications(t *testing.T) {
	b := builder.NewOrderBuilder()
	f := startSession(t, b.BuildDomain())
	f.waitChange(t)

	confirmed := b.With(func(bb *builder.OrderBuilder) {
		bb.Status = order.StatusConfirmed
		bb.PaymentStatus = order.PaymentPaid
		bb.Version = 2
	}).BuildDomain()
	f.channel.emit(notifFor(confirmed, event.TopicOrderChanged))

	change := f.waitChange(t)
	assert.Equal(t, sync.ChangeUpserted, change.Kind)
	assert.Equal(t, order.StatusConfirmed, change.Order.Status)

	got, ok := f.session.Order(b.ID)
	require.True(t, ok)
	assert.Equal(t, int64(2), got.Version)
}

func TestSessionPointFetchesNewOrders(t *testing.T) {
	f := startSession(t)

	incoming := builder.NewOrderBuilder().BuildDomain()
	f.api.setOrder(incoming)
	f.channel.emit(notifFor(incoming, event.TopicNewOrder))

	change := f.waitChange(t)
	assert.Equal(t, incoming.ID, change.Order.ID)
	assert.Equal(t, incoming.CustomerName, change.Order.CustomerName)
}

func TestSessionRecoversThroughPollAfterDisconnect(t *testing.T) {
	b := builder.NewOrderBuilder()
	f := startSession(t, b.BuildDomain())
	f.waitChange(t)

	// A mutation happens server-side, then the channel dies before its
	// notification could be delivered.
	f.api.setOrder(b.With(func(bb *builder.OrderBuilder) {
		bb.Status = order.StatusPreparing
		bb.PaymentStatus = order.PaymentPaid
		bb.Version = 3
	}).BuildDomain())
	f.channel.dropConnection()

	// The disconnect kicked an immediate poll; the missed state arrives.
	change := f.waitChange(t)
	assert.Equal(t, order.StatusPreparing, change.Order.Status)
	assert.Equal(t, int64(3), change.Order.Version)

	assert.Eventually(t, func() bool { return !f.session.Stale() },
		time.Second, 5*time.Millisecond)
}

func TestSessionReconnectDistrustsIncrementalsUntilResync(t *testing.T) {
	b := builder.NewOrderBuilder()
	f := startSession(t, b.BuildDomain())
	f.waitChange(t)

	// The server settled on version 4 during a missed window; the reconnect
	// marks the store stale and kicks a resync.
	f.api.setOrder(b.With(func(bb *builder.OrderBuilder) {
		bb.Status = order.StatusReady
		bb.Version = 4
	}).BuildDomain())
	f.channel.reconnect()

	assert.Eventually(t, func() bool {
		got, ok := f.session.Order(b.ID)
		return ok && got.Version == 4
	}, time.Second, 5*time.Millisecond)
}

func TestSessionDispatchesActions(t *testing.T) {
	b := builder.NewOrderBuilder()
	f := startSession(t, b.BuildDomain())
	f.waitChange(t)

	result, err := f.session.VerifyPayment(context.Background(), b.ID, "admin-1", order.MethodQRIS)
	require.NoError(t, err)
	assert.False(t, result.AlreadyVerified)
	assert.Equal(t, order.StatusConfirmed, result.Order.Status)

	got, _ := f.session.Order(b.ID)
	assert.Equal(t, order.PaymentPaid, got.PaymentStatus)

	updated, err := f.session.ChangeStatus(context.Background(), b.ID, order.StatusPreparing, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Version)

	// Tab folding reflects the move out of the pending bucket.
	assert.Eventually(t, func() bool {
		return len(f.session.OrdersByBucket(order.BucketPreparing)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.session.OrdersByBucket(order.BucketPending))
}
