package components

import (
	"tutor-booking/internal/handler"
	"tutor-booking/internal/handler/api"
	"tutor-booking/internal/handler/middleware"
	"tutor-booking/internal/infra/ws"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/internal/pkg/config"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewBookingHandler,
		NewWSHandler,
		NewRateLimiter,
		middleware.NewAuthMiddleware,
		func(b *api.BookingHandler, w *api.WSHandler) handler.Handlers {
			return handler.Handlers{Booking: b, WS: w}
		},
	),
	fx.Invoke(handler.NewRouter),
)

func NewWSHandler(hub *ws.Hub, cfg config.Config) *api.WSHandler {
	return api.NewWSHandler(hub, cfg.WS)
}

func NewRateLimiter(cfg config.Config, clk clock.Clock) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimit, clk)
}
