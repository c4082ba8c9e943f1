package components

import (
	"context"
	"log/slog"

	"cafesync/internal/hub"
	"cafesync/internal/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var HubModule = fx.Module("hub",
	fx.Provide(
		hub.New,
		NewRedisRelay,
	),
	fx.Invoke(startRelay),
)

func NewRedisRelay(rdb *redis.Client, cfg config.Config, h *hub.Hub, logger *slog.Logger) *hub.RedisRelay {
	return hub.NewRedisRelay(rdb, cfg.Redis.ChannelPrefix, h, logger)
}

func startRelay(lc fx.Lifecycle, relay *hub.RedisRelay) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				relay.Run(ctx)
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			<-done
			return nil
		},
	})
}
