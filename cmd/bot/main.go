package main

import (
	"context"
	"log"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"coin_bot/internal/modules/bootstrap"
	"coin_bot/internal/modules/config"
	"coin_bot/internal/modules/gateway"
	"coin_bot/internal/modules/health"
	"coin_bot/internal/modules/storage"
	"coin_bot/internal/modules/strategy"
	telegram "coin_bot/internal/modules/telegram_bot"
	"coin_bot/internal/runner"
	"coin_bot/pkg/logger"
	"coin_bot/pkg/tracing"
)

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(cfg.Service.Name)
	l, closeFn, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})

	l.Info("effective config\n" + cfg.Dump())
	return l, nil
}

// *zap.Logger в параметрах: глобальный логгер должен подняться раньше трейсера.
func newTracer(lc fx.Lifecycle, cfg *config.Config, _ *zap.Logger) (opentracing.Tracer, error) {
	tracing.SetServiceName(cfg.Service.Name)
	tracer, closeFn, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeFn()
			return nil
		},
	})
	return tracer, nil
}

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			newLogger,
			newTracer,
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		config.Module(),
		storage.Module(),
		gateway.Module(),
		strategy.Module(),
		health.Module(),
		telegram.Module(),
		bootstrap.Module(),
		runner.Module(),
		// трейсер глобальный, спаны берутся через opentracing.StartSpanFromContext
		fx.Invoke(func(opentracing.Tracer) {}),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	// Run ждёт SIGINT/SIGTERM и гасит раннеры через OnStop
	app.Run()
}
