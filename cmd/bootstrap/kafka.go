package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"cafesync/internal/domain/order"
	"cafesync/internal/infra/kafkax"
	"cafesync/internal/pkg/config"
	"cafesync/internal/usecase/commands"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
)

var KafkaModule = fx.Module("kafka",
	fx.Provide(
		NewKafkaConsumer,
	),
	fx.Invoke(startIngest),
)

func NewKafkaConsumer(cfg config.Config, logger *slog.Logger) *kafkax.Consumer {
	return kafkax.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrdersTopic, logger)
}

func startIngest(lc fx.Lifecycle, consumer *kafkax.Consumer, orderCommands commands.OrderCommands, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if err := consumer.Start(ctx, ingestHandler(orderCommands, logger)); err != nil {
					logger.Error("order ingest stopped", "error", err)
				}
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

// ingestHandler commits everything except transient failures: a payload this
// build cannot interpret is logged and skipped, retrying it cannot succeed.
func ingestHandler(orderCommands commands.OrderCommands, logger *slog.Logger) kafkax.Handler {
	return func(ctx context.Context, m kafka.Message) error {
		env, err := kafkax.DecodeEnvelope(m.Value)
		if err != nil {
			logger.Warn("skipping undecodable message", "offset", m.Offset, "error", err)
			return nil
		}
		if env.EventType != kafkax.EventOrderSubmitted {
			logger.Debug("ignoring event type", "event_type", env.EventType)
			return nil
		}

		in, err := kafkax.UnwrapPayload[kafkax.IncomingOrder](env.Payload)
		if err != nil {
			logger.Warn("skipping malformed order payload", "event_id", env.EventID, "error", err)
			return nil
		}

		if _, err := orderCommands.IngestOrder(ctx, in); err != nil {
			if errors.Is(err, order.ErrUnknownStatus) {
				logger.Warn("skipping order with unknown vocabulary",
					"order_id", in.OrderID, "status", in.Status, "error", err)
				return nil
			}
			return err
		}
		return nil
	}
}
