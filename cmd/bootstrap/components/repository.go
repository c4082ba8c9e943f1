package components

import (
	repo_impl "cafesync/internal/infra/repository"
	"cafesync/internal/usecase/commands"
	"cafesync/internal/usecase/queries"

	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			repo_impl.NewOrdersRepository,
			fx.As(new(commands.OrderRepository)),
			fx.As(new(queries.OrderReader)),
		),
	),
)
