//go:build unit

package hub_test

import (
	"log/slog"
	"testing"

	"cafesync/internal/event"
	"cafesync/internal/hub"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *hub.Hub {
	return hub.New(slog.New(slog.DiscardHandler))
}

func notif(topic event.Topic) event.Notification {
	return event.Notification{EventID: uuid.NewString(), Topic: topic, OrderID: "o-1", Version: 2}
}

func TestPublishReachesAllRoomSubscribers(t *testing.T) {
	h := newTestHub()
	admin := h.Join(event.RoomAdmin)
	staff := h.Join(event.RoomStaff)
	defer admin.Close()
	defer staff.Close()

	n := notif(event.TopicOrderChanged)
	h.Publish(n, event.AllRooms...)

	got := <-admin.C
	assert.Equal(t, n.EventID, got.EventID)
	got = <-staff.C
	assert.Equal(t, n.EventID, got.EventID)
}

func TestPublishScopedToRoom(t *testing.T) {
	h := newTestHub()
	admin := h.Join(event.RoomAdmin)
	staff := h.Join(event.RoomStaff)
	defer admin.Close()
	defer staff.Close()

	h.Publish(notif(event.TopicPaymentChanged), event.RoomAdmin)

	require.Len(t, admin.C, 1)
	assert.Empty(t, staff.C)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := newTestHub()
	sub := h.Join(event.RoomStaff)
	defer sub.Close()

	// Fill the buffer and then some; Publish must never block.
	for i := 0; i < 200; i++ {
		h.Publish(notif(event.TopicNewOrder), event.RoomStaff)
	}
	assert.Len(t, sub.C, 64)
}

func TestCloseRemovesSubscription(t *testing.T) {
	h := newTestHub()
	sub := h.Join(event.RoomAdmin)
	require.Equal(t, 1, h.SubscriberCount(event.RoomAdmin))

	sub.Close()
	assert.Equal(t, 0, h.SubscriberCount(event.RoomAdmin))

	_, open := <-sub.C
	assert.False(t, open)

	// Double close is harmless.
	sub.Close()
}

type recordingRelay struct {
	forwarded []event.Room
}

func (r *recordingRelay) Forward(room event.Room, _ event.Notification) {
	r.forwarded = append(r.forwarded, room)
}

func TestPublishForwardsToRelayOncePerRoom(t *testing.T) {
	h := newTestHub()
	relay := &recordingRelay{}
	h.SetRelay(relay)

	h.Publish(notif(event.TopicOrderChanged), event.AllRooms...)
	assert.Equal(t, []event.Room{event.RoomAdmin, event.RoomStaff}, relay.forwarded)
}

func TestDeliverLocalDoesNotForward(t *testing.T) {
	h := newTestHub()
	relay := &recordingRelay{}
	h.SetRelay(relay)
	sub := h.Join(event.RoomAdmin)
	defer sub.Close()

	h.DeliverLocal(notif(event.TopicOrderChanged), event.RoomAdmin)

	assert.Empty(t, relay.forwarded)
	assert.Len(t, sub.C, 1)
}
