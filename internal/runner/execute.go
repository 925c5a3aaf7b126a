package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coin_bot/internal/accounting"
	"coin_bot/internal/helper"
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
	gateway "coin_bot/internal/modules/gateway/service"
)

const coinStep = 1e-8

type ExecConfig struct {
	USDAccount  string
	FeeRate     float64
	BuyFraction float64
	// таймаут на каждый запрос к бирже
	Timeout time.Duration
}

// Executor исполняет решение: снимок рынка и балансов, ордер, запись сделки и итогов.
type Executor struct {
	gw     gateway.Gateway
	totals *accounting.Totals
	cfg    ExecConfig
	log    *zap.Logger
	now    func() time.Time
}

func NewExecutor(gw gateway.Gateway, totals *accounting.Totals, cfg ExecConfig, log *zap.Logger) *Executor {
	return &Executor{
		gw:     gw,
		totals: totals,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

type marketSnapshot struct {
	book models.OrderBook
	usd  models.Balance
	coin models.Balance
}

func (e *Executor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

// fetch тянет стакан и оба баланса параллельно; любая ошибка - весь снимок невалиден.
func (e *Executor) fetch(ctx context.Context, inst *instrument.Instrument) (marketSnapshot, error) {
	var snap marketSnapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, cancel := e.withTimeout(gctx)
		defer cancel()
		book, err := e.gw.OrderBook(c, inst.Ticker)
		if err != nil {
			return &models.GatewayError{Op: "order book", Err: err}
		}
		snap.book = book
		return nil
	})
	g.Go(func() error {
		c, cancel := e.withTimeout(gctx)
		defer cancel()
		bal, err := e.gw.AccountBalance(c, e.cfg.USDAccount)
		if err != nil {
			return &models.GatewayError{Op: "usd balance", Err: err}
		}
		snap.usd = bal
		return nil
	})
	g.Go(func() error {
		c, cancel := e.withTimeout(gctx)
		defer cancel()
		bal, err := e.gw.AccountBalance(c, inst.AccountID)
		if err != nil {
			return &models.GatewayError{Op: "instrument balance", Err: err}
		}
		snap.coin = bal
		return nil
	})

	if err := g.Wait(); err != nil {
		return marketSnapshot{}, err
	}
	return snap, nil
}

// Fill - записанная сделка; Profit заполнен только у продажи.
type Fill struct {
	Tx     models.Transaction
	Profit float64
}

// Execute исполняет buy/sell. Ошибка шлюза не меняет ни инструмент, ни итоги.
func (e *Executor) Execute(ctx context.Context, inst *instrument.Instrument, d models.Decision, armCooldown bool) (*Fill, error) {
	switch d.Action {
	case models.ActionBuy:
		if inst.Holding {
			return nil, &models.ConsistencyError{Ticker: inst.Ticker, Reason: "buy while holding"}
		}
	case models.ActionSell:
		if last, ok := inst.LastTransaction(); !ok || last.Type != models.TxBuy {
			return nil, &models.ConsistencyError{Ticker: inst.Ticker, Reason: "sell without a preceding buy"}
		}
	default:
		return nil, nil
	}

	snap, err := e.fetch(ctx, inst)
	if err != nil {
		return nil, err
	}

	if d.Action == models.ActionBuy {
		return e.buy(ctx, inst, snap)
	}
	return e.sell(ctx, inst, snap, armCooldown)
}

func (e *Executor) buy(ctx context.Context, inst *instrument.Instrument, snap marketSnapshot) (*Fill, error) {
	funds := helper.Mul2(snap.usd.Available, e.cfg.BuyFraction)
	if funds <= 0 {
		return nil, &models.GatewayError{Op: "buy", Err: fmt.Errorf("no usd available on %s", e.cfg.USDAccount)}
	}

	c, cancel := e.withTimeout(ctx)
	defer cancel()
	res, err := e.gw.PlaceMarketOrder(c, models.OrderRequest{
		ClientOID: uuid.NewString(),
		Side:      models.SideBuy,
		Ticker:    inst.Ticker,
		Funds:     funds,
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "place buy", Err: err}
	}

	price := helper.Round2(snap.book.Ask)
	fee := helper.Mul2(price, e.cfg.FeeRate)
	// биржа списывает комиссию из funds, монет приходит на остаток
	size := 0.0
	if snap.book.Ask > 0 {
		size = helper.RoundDownToTick(funds*(1-e.cfg.FeeRate)/snap.book.Ask, coinStep)
	}

	tx, err := inst.RecordBuy(e.now(), price, fee, size)
	if err != nil {
		return nil, err
	}
	e.totals.AddFee(fee)

	e.log.Info("buy executed",
		zap.String("instrument", inst.Ticker),
		zap.String("order_id", res.ID),
		zap.Float64("funds", funds),
		zap.Float64("price", price),
		zap.Float64("fee", fee),
	)
	return &Fill{Tx: tx}, nil
}

func (e *Executor) sell(ctx context.Context, inst *instrument.Instrument, snap marketSnapshot, armCooldown bool) (*Fill, error) {
	size := snap.coin.Available
	if size <= 0 {
		return nil, &models.GatewayError{Op: "sell", Err: fmt.Errorf("no %s available", inst.AccountID)}
	}

	c, cancel := e.withTimeout(ctx)
	defer cancel()
	res, err := e.gw.PlaceMarketOrder(c, models.OrderRequest{
		ClientOID: uuid.NewString(),
		Side:      models.SideSell,
		Ticker:    inst.Ticker,
		Size:      size,
	})
	if err != nil {
		return nil, &models.GatewayError{Op: "place sell", Err: err}
	}

	price := helper.Round2(snap.book.Bid)
	fee := helper.Mul2(price, e.cfg.FeeRate)

	bought, sold, err := inst.RecordSell(e.now(), price, fee, size, armCooldown)
	if err != nil {
		return nil, err
	}
	e.totals.AddFee(fee)
	profit := e.totals.AddRoundTrip(bought, sold)

	e.log.Info("sell executed",
		zap.String("instrument", inst.Ticker),
		zap.String("order_id", res.ID),
		zap.Float64("size", size),
		zap.Float64("price", price),
		zap.Float64("fee", fee),
		zap.Float64("profit", profit),
	)
	return &Fill{Tx: sold, Profit: profit}, nil
}
