package bootstrap

import (
	"go.uber.org/fx"

	"coin_bot/internal/modules/bootstrap/service"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			service.NewRestorer, // -> *service.Restorer
		),
	)
}
