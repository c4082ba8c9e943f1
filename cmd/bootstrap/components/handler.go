package components

import (
	"log/slog"

	"cafesync/internal/handler"
	"cafesync/internal/handler/api"
	"cafesync/internal/hub"
	"cafesync/internal/pkg/config"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewOrdersHandler,
		NewStreamHandler,
	),
	fx.Invoke(handler.NewRouter),
)

func NewStreamHandler(h *hub.Hub, cfg config.Config, logger *slog.Logger) *api.StreamHandler {
	return api.NewStreamHandler(h, cfg.Sync.HeartbeatInterval, logger)
}
