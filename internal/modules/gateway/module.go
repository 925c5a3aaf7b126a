package gateway

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"coin_bot/internal/modules/config"
	"coin_bot/internal/modules/gateway/service"
	healthsvc "coin_bot/internal/modules/health/service"
)

type Out struct {
	fx.Out

	Gateway service.Gateway
	// nil, если price_source=rest
	Feed *service.Feed
	// nil в боевом режиме
	Paper *service.Paper
}

func NewClient(cfg *config.Config) *service.Client {
	return service.NewClient(service.ClientConfig{
		BaseURL:    cfg.Exchange.RestURL,
		Key:        cfg.Exchange.Key,
		Secret:     cfg.Exchange.Secret,
		Passphrase: cfg.Exchange.Passphrase,
		Timeout:    cfg.RequestTimeout(),
	})
}

// New собирает шлюз: REST или REST+websocket для котировок, поверх него бумажное исполнение.
func New(cfg *config.Config, client *service.Client, log *zap.Logger) Out {
	var out Out
	var gw service.Gateway = client

	if cfg.Exchange.PriceSource == config.PriceSourceWebsocket {
		tickers := make([]string, 0, len(cfg.Instruments))
		for _, ic := range cfg.Instruments {
			tickers = append(tickers, ic.Ticker)
		}
		out.Feed = service.NewFeed(service.FeedConfig{
			URL:     cfg.Exchange.WSURL,
			Tickers: tickers,
			MaxAge:  cfg.Exchange.QuoteMaxAge,
		}, log)
		gw = service.NewStreamed(client, out.Feed, log)
	}

	if cfg.Paper() {
		accounts := make(map[string]string, len(cfg.Instruments))
		for _, ic := range cfg.Instruments {
			accounts[ic.Ticker] = ic.AccountID()
		}
		out.Paper = service.NewPaper(gw, service.PaperConfig{
			USDAccount: cfg.USDAccount(),
			StartUSD:   cfg.Trading.PaperUSD,
			FeeRate:    cfg.Trading.FeeRate,
			Accounts:   accounts,
		})
		gw = out.Paper
	}

	out.Gateway = gw
	return out
}

func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(NewClient, New),
		fx.Invoke(func(lc fx.Lifecycle, feed *service.Feed, state *healthsvc.State, log *zap.Logger) {
			if feed == nil {
				return
			}
			feed.OnStatus(state.SetWSConnected)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						defer close(done)
						feed.Run(ctx)
					}()
					log.Info("websocket feed started")
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
