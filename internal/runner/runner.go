package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
	gateway "coin_bot/internal/modules/gateway/service"
	storage "coin_bot/internal/modules/storage/service"
	strategy "coin_bot/internal/modules/strategy/service"
	"coin_bot/internal/notify"
	"coin_bot/pkg/tracing"
)

// StatusPublisher - реестр копий состояния для дашборда.
type StatusPublisher interface {
	Publish(st instrument.Status)
}

type Deps struct {
	Engine   strategy.Engine
	Quotes   gateway.QuoteSource
	Executor *Executor
	Store    storage.Store
	Notifier notify.Notifier
	Status   StatusPublisher
	Log      *zap.Logger

	Poll    time.Duration
	Timeout time.Duration
}

// Runner ведёт один инструмент: своя горутина, свой тикер.
// Instrument трогает только эта горутина, наружу уходят копии.
type Runner struct {
	inst *instrument.Instrument
	d    Deps
	log  *zap.Logger
	now  func() time.Time

	lastDecision string
}

func New(inst *instrument.Instrument, d Deps) *Runner {
	return &Runner{
		inst: inst,
		d:    d,
		log:  d.Log.With(zap.String("instrument", inst.Ticker)),
		now:  time.Now,
	}
}

func (r *Runner) Ticker() string { return r.inst.Ticker }

// Run крутит циклы до отмены ctx; первый цикл сразу, без ожидания тика.
// На выходе сохраняет снапшот.
func (r *Runner) Run(ctx context.Context) {
	r.log.Info("runner started", zap.Duration("poll", r.d.Poll))
	r.publish()

	t := time.NewTicker(r.d.Poll)
	defer t.Stop()

	for {
		r.Cycle(ctx)

		select {
		case <-ctx.Done():
			r.flush()
			r.log.Info("runner stopped")
			return
		case <-t.C:
		}
	}
}

func (r *Runner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.d.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.d.Timeout)
}

// Cycle - один опрос: котировка, история, решение, исполнение. Ошибка рушит только этот цикл.
func (r *Runner) Cycle(ctx context.Context) models.Decision {
	if ctx.Err() != nil {
		return models.NoAction("stopped")
	}

	span, ctx := tracing.StartSpan(ctx, "runner.cycle", opentracing.Tag{Key: "instrument", Value: r.inst.Ticker})
	defer span.Finish()

	log := r.log
	if id := tracing.TraceID(span); id != "" {
		log = log.With(zap.String("trace_id", id))
	}

	decision := r.cycle(ctx, log)
	if decision.Action == models.ActionError {
		tracing.Fail(span, decision.Err)
	}
	span.SetTag("action", string(decision.Action))

	r.lastDecision = fmt.Sprintf("%s: %s", decision.Action, decision.Reason)
	r.save(ctx)
	r.publish()
	return decision
}

func (r *Runner) cycle(ctx context.Context, log *zap.Logger) models.Decision {
	c, cancel := r.withTimeout(ctx)
	book, err := r.d.Quotes.OrderBook(c, r.inst.Ticker)
	cancel()
	if err != nil {
		gerr := &models.GatewayError{Op: "order book", Err: err}
		log.Warn("quote fetch failed", zap.Error(gerr))
		return models.Fail(gerr)
	}

	p := book.Point(r.now().UTC())
	r.inst.History.Push(p)
	if err := r.d.Store.AppendPoint(ctx, r.inst.Ticker, p); err != nil {
		log.Warn("history append failed", zap.Error(err))
	}

	decision := r.d.Engine.Decide(r.inst)
	logDecision(log, r.inst, decision)

	if !decision.Actionable() {
		return decision
	}

	fill, err := r.d.Executor.Execute(ctx, r.inst, decision, r.d.Engine.ArmsCooldown())
	if err != nil {
		var gerr *models.GatewayError
		if errors.As(err, &gerr) {
			log.Warn("execution aborted, nothing recorded", zap.String("action", string(decision.Action)), zap.Error(err))
		} else {
			log.Error("execution failed", zap.String("action", string(decision.Action)), zap.Error(err))
		}
		r.d.Notifier.Sendf("⚠️ %s %s не исполнен: %v", decision.Action, r.inst.Ticker, err)
		return models.Fail(err)
	}

	if err := r.d.Store.AppendTransaction(ctx, r.inst.Ticker, fill.Tx); err != nil {
		log.Warn("transaction append failed", zap.Error(err))
	}

	msg := notify.FormatTrade(r.inst.Ticker, fill.Tx)
	if fill.Tx.Type == models.TxSell {
		msg += fmt.Sprintf(", прибыль %.2f", fill.Profit)
	}
	r.d.Notifier.Send(msg)
	return decision
}

func logDecision(log *zap.Logger, inst *instrument.Instrument, d models.Decision) {
	fields := []zap.Field{
		zap.String("action", string(d.Action)),
		zap.String("reason", d.Reason),
		zap.Bool("holding", inst.Holding),
		zap.Bool("initial_round", inst.InitialRound),
		zap.Bool("cooldown", inst.Cooldown),
		zap.Int("points", inst.History.Len()),
	}
	switch {
	case d.Action == models.ActionError:
		log.Error("decision failed", append(fields, zap.Error(d.Err))...)
	case d.InsufficientData():
		log.Debug("not enough data", fields...)
	default:
		log.Info("decision", fields...)
	}
}

func (r *Runner) save(ctx context.Context) {
	if err := r.d.Store.SaveSnapshot(ctx, r.inst.Snapshot()); err != nil {
		r.log.Warn("snapshot save failed", zap.Error(err))
	}
}

// flush - последний снапшот при остановке, ctx уже отменён.
func (r *Runner) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.save(ctx)
}

func (r *Runner) publish() {
	if r.d.Status != nil {
		r.d.Status.Publish(r.inst.Status(r.now(), r.lastDecision))
	}
}
