package bootstrap

import (
	"tutor-booking/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	LoggerModule,
	TracingModule,
	DBModule,
	JWTModule,
	components.PersistenceModule,
	components.UseCaseModule,
	MessagingModule,
	components.HandlerModule,
)
