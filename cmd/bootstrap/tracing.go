package bootstrap

import (
	"context"

	"tutor-booking/internal/pkg/config"
	"tutor-booking/internal/pkg/tracing"

	"go.uber.org/fx"
)

var TracingModule = fx.Module("tracing",
	fx.Invoke(registerTracer),
)

func registerTracer(lc fx.Lifecycle, cfg config.Config) error {
	shutdown, err := tracing.InitTracer(context.Background(), cfg.Tracing)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return shutdown(ctx)
		},
	})
	return nil
}
