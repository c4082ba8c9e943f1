package components

import (
	"cafesync/internal/hub"
	"cafesync/internal/infra/redisx"
	"cafesync/internal/pkg/clock"
	"cafesync/internal/usecase/commands"
	"cafesync/internal/usecase/queries"
	"cafesync/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	fx.Provide(
		clock.NewRealClock,
		func(h *hub.Hub) commands.Publisher { return h },
		func(c *redisx.StatusCache) commands.StatusCache { return c },
		func(p *pgxpool.Pool) shared.TxBeginner { return p },
		commands.NewOrderCommands,
		queries.NewOrderQueries,
	),
)
