package sync

import (
	stdsync "sync"

	"cafesync/internal/domain/order"

	"github.com/jinzhu/copier"
)

type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	// ChangeEvicted fires once when a record reaches a terminal state and
	// leaves the store. The carried snapshot is the final state, so screens
	// can move the order to history before forgetting it.
	ChangeEvicted ChangeKind = "evicted"
)

type Change struct {
	Kind  ChangeKind
	Order order.Order
}

// Store is the per-session order map. Reads hand out deep copies, so callers
// can never mutate shared state; all writes come from the reconciler, which
// serializes them. Change callbacks fire only on structural change: replaying
// a record that equals the stored one is silent.
type Store struct {
	mu       stdsync.RWMutex
	orders   map[string]*order.Order
	onChange []func(Change)
}

func NewStore() *Store {
	return &Store{orders: make(map[string]*order.Order)}
}

// Subscribe registers a change callback. Registration is not synchronized
// with writes; subscribe before the session starts.
func (s *Store) Subscribe(fn func(Change)) {
	s.onChange = append(s.onChange, fn)
}

func (s *Store) Get(id string) (*order.Order, bool) {
	s.mu.RLock()
	o, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return snapshotOrder(o), true
}

// Version reports the stored server version, 0 when unknown.
func (s *Store) Version(id string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[id]; ok {
		return o.Version
	}
	return 0
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	return ids
}

// Snapshot returns deep copies of every record.
func (s *Store) Snapshot() []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *snapshotOrder(o))
	}
	return out
}

// ByBucket filters the snapshot by display tab. The folding of
// pending_verification and confirmed into the pending tab happens here, never
// in the stored state.
func (s *Store) ByBucket(b order.Bucket) []order.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []order.Order
	for _, o := range s.orders {
		if order.BucketFor(o.Status) == b {
			out = append(out, *snapshotOrder(o))
		}
	}
	return out
}

// Put installs a record. A terminal record is announced and evicted in the
// same step. Returns true when the store changed.
func (s *Store) Put(o *order.Order) bool {
	s.mu.Lock()
	prev, exists := s.orders[o.ID]
	if exists && equalOrders(prev, o) {
		s.mu.Unlock()
		return false
	}

	stored := snapshotOrder(o)
	kind := ChangeUpserted
	if stored.IsTerminal() {
		if !exists {
			// Terminal and never seen: nothing to show or evict.
			s.mu.Unlock()
			return false
		}
		delete(s.orders, o.ID)
		kind = ChangeEvicted
	} else {
		s.orders[o.ID] = stored
	}
	s.mu.Unlock()

	s.notify(Change{Kind: kind, Order: *snapshotOrder(stored)})
	return true
}

// Drop removes a record without a terminal state, used when a full snapshot
// no longer lists it. Returns false for unknown ids.
func (s *Store) Drop(id string) bool {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.orders, id)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeEvicted, Order: *snapshotOrder(o)})
	return true
}

func (s *Store) notify(c Change) {
	for _, fn := range s.onChange {
		fn(c)
	}
}

// equalOrders compares the fields a mutation can touch. Version alone would
// suffice for server-originated records; comparing the rest keeps a replayed
// equal snapshot from waking subscribers.
func equalOrders(a, b *order.Order) bool {
	if a.Version != b.Version || a.Status != b.Status ||
		a.PaymentStatus != b.PaymentStatus || a.PaymentMethod != b.PaymentMethod {
		return false
	}
	if (a.EstimatedReadyAt == nil) != (b.EstimatedReadyAt == nil) {
		return false
	}
	if a.EstimatedReadyAt != nil && !a.EstimatedReadyAt.Equal(*b.EstimatedReadyAt) {
		return false
	}
	return true
}

func snapshotOrder(o *order.Order) *order.Order {
	var cp order.Order
	// copier failures are programming errors on this struct shape
	_ = copier.CopyWithOption(&cp, o, copier.Option{DeepCopy: true})
	return &cp
}
