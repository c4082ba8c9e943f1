package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"cafesync/internal/event"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRelay bridges notifications between server instances over Redis
// pub/sub, one channel per room. Local fanout never depends on Redis being
// healthy; a broken relay only degrades to single-instance delivery.
type RedisRelay struct {
	id     string
	rdb    *redis.Client
	prefix string
	hub    *Hub
	logger *slog.Logger
}

// relayEnvelope tags each message with the publishing instance so a relay
// never re-delivers its own notifications.
type relayEnvelope struct {
	Origin       string             `json:"origin"`
	Notification event.Notification `json:"notification"`
}

func NewRedisRelay(rdb *redis.Client, prefix string, h *Hub, logger *slog.Logger) *RedisRelay {
	r := &RedisRelay{
		id:     uuid.NewString(),
		rdb:    rdb,
		prefix: prefix,
		hub:    h,
		logger: logger,
	}
	h.SetRelay(r)
	return r
}

func (r *RedisRelay) channel(room event.Room) string {
	return r.prefix + "." + string(room)
}

func (r *RedisRelay) Forward(room event.Room, n event.Notification) {
	payload, err := json.Marshal(relayEnvelope{Origin: r.id, Notification: n})
	if err != nil {
		r.logger.Error("marshal notification for relay", "error", err)
		return
	}
	if err := r.rdb.Publish(context.Background(), r.channel(room), payload).Err(); err != nil {
		r.logger.Warn("relay publish failed", "room", string(room), "error", err)
	}
}

// Run subscribes to all room channels and republishes into the local hub.
// Blocks until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) {
	channels := make([]string, 0, len(event.AllRooms))
	for _, room := range event.AllRooms {
		channels = append(channels, r.channel(room))
	}
	sub := r.rdb.Subscribe(ctx, channels...)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var env relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Error("decode relayed notification", "error", err)
				continue
			}
			if env.Origin == r.id {
				continue
			}
			room := event.Room(strings.TrimPrefix(msg.Channel, r.prefix+"."))
			r.hub.DeliverLocal(env.Notification, room)
		}
	}
}
