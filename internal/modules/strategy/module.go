package strategy

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"coin_bot/internal/modules/strategy/service"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewEngine, // service.Engine
		),
		fx.Invoke(func(e service.Engine, log *zap.Logger) {
			log.Info("strategy selected", zap.String("strategy", e.Name()), zap.Bool("cooldown", e.ArmsCooldown()))
		}),
	)
}
