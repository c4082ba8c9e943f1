package bootstrap

import (
	"cafesync/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	RedisModule,
	KafkaModule,
	components.HubModule,
	components.RepositoryModule,
	components.UseCaseModule,
	components.HandlerModule,
)
