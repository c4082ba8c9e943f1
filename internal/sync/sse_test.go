//go:build unit

package sync_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"cafesync/internal/event"
	"cafesync/internal/handler/api"
	"cafesync/internal/hub"
	"cafesync/internal/sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Spins up the real stream endpoint and subscribes the real channel client,
// so the frame format is checked from both ends.
func TestSSEChannelEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.DiscardHandler)
	h := hub.New(logger)

	router := gin.New()
	streamHandler := api.NewStreamHandler(h, 50*time.Millisecond, logger)
	router.GET("/api/events/:room", streamHandler.StreamEvents)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ch := sync.NewSSEChannel(srv.URL, event.RoomStaff, logger)
	connected := make(chan struct{}, 1)
	received := make(chan event.Notification, 8)
	ch.OnConnected(func() { connected <- struct{}{} })
	ch.OnNotification(func(n event.Notification) { received <- n })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Start(ctx)

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("channel never connected")
	}
	require.Eventually(t, func() bool { return h.SubscriberCount(event.RoomStaff) == 1 },
		time.Second, 5*time.Millisecond)

	want := event.Notification{
		EventID:    uuid.NewString(),
		Topic:      event.TopicOrderChanged,
		OrderID:    "o-1",
		Status:     "preparing",
		Version:    4,
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}
	h.Publish(want, event.RoomStaff)

	select {
	case got := <-received:
		assert.Equal(t, want.EventID, got.EventID)
		assert.Equal(t, want.Topic, got.Topic)
		assert.Equal(t, want.OrderID, got.OrderID)
		assert.Equal(t, int64(4), got.Version)
	case <-time.After(2 * time.Second):
		t.Fatal("notification never arrived over the stream")
	}

	// Heartbeats keep the stream alive without producing notifications.
	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, received)
}

func TestSSEChannelRejectsUnknownRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.DiscardHandler)
	h := hub.New(logger)

	router := gin.New()
	streamHandler := api.NewStreamHandler(h, time.Minute, logger)
	router.GET("/api/events/:room", streamHandler.StreamEvents)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ch := sync.NewSSEChannel(srv.URL, event.Room("lobby"), logger)
	disconnected := make(chan error, 1)
	ch.OnDisconnected(func(err error) { disconnected <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Start(ctx)

	select {
	case err := <-disconnected:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription to an unknown room should fail")
	}
	assert.Equal(t, 0, h.SubscriberCount(event.Room("lobby")))
}
