package telegram

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"coin_bot/internal/accounting"
	"coin_bot/internal/modules/config"
	healthsvc "coin_bot/internal/modules/health/service"
	"coin_bot/internal/notify"
)

const queueSize = 64

// NewNotifier: есть токен - телеграм, иначе всё в лог.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, state *healthsvc.State, totals *accounting.Totals, log *zap.Logger) (notify.Notifier, error) {
	if cfg.Telegram.Token == "" {
		log.Info("telegram token is empty, notifications go to log")
		return notify.NewStdout(log), nil
	}

	t, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, state, totals, log)
	if err != nil {
		return nil, err
	}

	// отправка в телеграм идёт из отдельной горутины, раннеры только кладут в очередь
	queue := notify.NewAsync(t, queueSize, log)

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go queue.Run(ctx)
			return t.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			t.Stop()
			return queue.Wait(stopCtx)
		},
	})
	return queue, nil
}

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(NewNotifier),
	)
}
