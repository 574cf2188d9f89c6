package bootstrap

import (
	"context"
	"log/slog"

	"tutor-booking/internal/infra/mq"
	"tutor-booking/internal/infra/notify"
	"tutor-booking/internal/infra/ws"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var MessagingModule = fx.Module("messaging",
	fx.Provide(
		ws.NewHub,
		NewPublisher,
		NewRelay,
	),
	fx.Invoke(func(*notify.Relay) {}),
)

// NewPublisher connects to the broker when AMQP_URL is set and otherwise
// logs each event.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (mq.Publisher, error) {
	var pub mq.Publisher
	if cfg.AMQP.URL == "" {
		logger.Warn("AMQP_URL not set, notifications will only be logged")
		pub = mq.NewLogPublisher(logger)
	} else {
		amqpPub, err := mq.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, err
		}
		pub = amqpPub
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return pub.Close()
		},
	})
	return pub, nil
}

func NewRelay(lc fx.Lifecycle, pool *pgxpool.Pool, pub mq.Publisher, clk clock.Clock, cfg config.Config) *notify.Relay {
	relay := notify.NewRelay(pool, pub, clk, notify.RelayOptionsFromConfig(cfg.Notify))
	lc.Append(fx.Hook{
		OnStart: relay.Start,
		OnStop:  relay.Stop,
	})
	return relay
}
