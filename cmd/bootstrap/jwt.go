package bootstrap

import (
	"fmt"
	"time"

	"tutor-booking/internal/pkg/config"
	"tutor-booking/internal/pkg/jwt"

	"go.uber.org/fx"
)

var JWTModule = fx.Module("jwt",
	fx.Provide(
		NewJWTService,
	),
)

func NewJWTService(cfg config.Config) (*jwt.Service, error) {
	accessTokenDuration, err := time.ParseDuration(cfg.JWT.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_ACCESS_TOKEN_DURATION: %w", err)
	}
	return jwt.NewService(cfg.JWT.Secret, accessTokenDuration), nil
}
