package runner

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"coin_bot/internal/accounting"
	bootstrap "coin_bot/internal/modules/bootstrap/service"
	"coin_bot/internal/modules/config"
	gateway "coin_bot/internal/modules/gateway/service"
	healthsvc "coin_bot/internal/modules/health/service"
	storage "coin_bot/internal/modules/storage/service"
	strategy "coin_bot/internal/modules/strategy/service"
	"coin_bot/internal/notify"
)

func newExecutor(cfg *config.Config, gw gateway.Gateway, totals *accounting.Totals, log *zap.Logger) *Executor {
	return NewExecutor(gw, totals, ExecConfig{
		USDAccount:  cfg.USDAccount(),
		FeeRate:     cfg.Trading.FeeRate,
		BuyFraction: cfg.Trading.BuyFraction,
		Timeout:     cfg.RequestTimeout(),
	}, log.Named("exec"))
}

type startParams struct {
	fx.In

	Ctx      context.Context
	Cfg      *config.Config
	Manager  *Manager
	Restorer *bootstrap.Restorer
	Engine   strategy.Engine
	Gateway  gateway.Gateway
	Paper    *gateway.Paper `optional:"true"`
	Executor *Executor
	Store    storage.Store
	Notifier notify.Notifier
	State    *healthsvc.State
	Log      *zap.Logger
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			accounting.NewTotals, // *accounting.Totals
			NewManager,           // *Manager
			newExecutor,          // *Executor
		),
		fx.Invoke(func(lc fx.Lifecycle, p startParams) {
			lc.Append(fx.Hook{
				OnStart: func(startCtx context.Context) error {
					var paper bootstrap.BalanceSetter
					if p.Paper != nil {
						paper = p.Paper
					}
					insts := p.Restorer.Restore(startCtx, p.Cfg, paper)

					runners := make([]*Runner, 0, len(insts))
					for _, inst := range insts {
						runners = append(runners, New(inst, Deps{
							Engine:   p.Engine,
							Quotes:   p.Gateway,
							Executor: p.Executor,
							Store:    p.Store,
							Notifier: p.Notifier,
							Status:   p.State,
							Log:      p.Log.Named("runner"),
							Poll:     p.Cfg.Trading.PollInterval,
							Timeout:  p.Cfg.RequestTimeout(),
						}))
					}

					if err := p.Manager.Start(p.Ctx, runners...); err != nil {
						return err
					}
					p.State.SetReady(true)
					p.Notifier.Send(bootstrap.Describe(insts))
					return nil
				},
				OnStop: func(ctx context.Context) error {
					p.State.SetReady(false)
					return p.Manager.Stop(ctx)
				},
			})
		}),
	)
}
