package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
	"coin_bot/internal/modules/config"
)

type PercentParams struct {
	PollInterval   time.Duration
	DayWindow      time.Duration
	Bucket         time.Duration
	MultiDayWindow time.Duration
	DayBucket      time.Duration
	Cooldown       time.Duration
	TakeProfit     float64
	StopLoss       float64
}

func PercentParamsFrom(cfg *config.Config) PercentParams {
	return PercentParams{
		PollInterval:   cfg.Trading.PollInterval,
		DayWindow:      cfg.Percent.DayWindow,
		Bucket:         cfg.Percent.Bucket,
		MultiDayWindow: cfg.Percent.MultiDayWindow,
		DayBucket:      cfg.Percent.DayBucket,
		Cooldown:       cfg.Percent.Cooldown,
		TakeProfit:     cfg.Percent.TakeProfit,
		StopLoss:       cfg.Percent.StopLoss,
	}
}

// Percent - вход на выходе из локальной ямы внутри суток, выход по фиксированным
// порогам от цены покупки.
type Percent struct {
	p   PercentParams
	log *zap.Logger

	dayPoints       int
	bucketPoints    int
	multiDayPoints  int
	dayBucketPoints int
	cooldownTicks   int
}

func NewPercent(p PercentParams, log *zap.Logger) *Percent {
	if log == nil {
		log = zap.NewNop()
	}
	return &Percent{
		p:               p,
		log:             log.Named("percent"),
		dayPoints:       ticks(p.DayWindow, p.PollInterval),
		bucketPoints:    ticks(p.Bucket, p.PollInterval),
		multiDayPoints:  ticks(p.MultiDayWindow, p.PollInterval),
		dayBucketPoints: ticks(p.DayBucket, p.PollInterval),
		cooldownTicks:   ticks(p.Cooldown, p.PollInterval),
	}
}

// ticks - сколько опросов укладывается в длительность, минимум один.
func ticks(d, poll time.Duration) int {
	if poll <= 0 {
		return 1
	}
	return max(1, int(d/poll))
}

func (s *Percent) Name() string       { return string(models.StrategyPercent) }
func (s *Percent) ArmsCooldown() bool { return true }

// CooldownTicks - длина паузы после продажи в тиках.
func (s *Percent) CooldownTicks() int { return s.cooldownTicks }

func (s *Percent) Decide(inst *instrument.Instrument) models.Decision {
	if inst.Holding {
		return s.exit(inst)
	}
	return s.entry(inst)
}

func (s *Percent) exit(inst *instrument.Instrument) models.Decision {
	entry, err := inst.EntryPrice()
	if err != nil {
		return models.Fail(err)
	}
	latest, ok := inst.History.Latest()
	if !ok {
		return models.Insufficient(fmt.Errorf("%w: empty history", models.ErrInsufficientData))
	}

	bid := decimal.NewFromFloat(latest.Bid)
	target := decimal.NewFromFloat(entry).Mul(decimal.NewFromFloat(s.p.TakeProfit))
	stop := decimal.NewFromFloat(entry).Mul(decimal.NewFromFloat(s.p.StopLoss))

	switch {
	case bid.GreaterThanOrEqual(target):
		return models.Sell(fmt.Sprintf("take profit: bid %s >= %s", bid, target.StringFixed(2)))
	case bid.LessThanOrEqual(stop):
		return models.Sell(fmt.Sprintf("stop loss: bid %s <= %s", bid, stop.StringFixed(2)))
	}
	return models.NoAction(fmt.Sprintf("threshold not reached: bid %s, entry %.2f", bid, entry))
}

func (s *Percent) entry(inst *instrument.Instrument) models.Decision {
	if !inst.TickCooldown(s.cooldownTicks) {
		return models.NoAction(fmt.Sprintf("on cooldown (%d/%d)", inst.CooldownTicks, s.cooldownTicks))
	}

	if inst.History.Len() < s.dayPoints {
		return models.Insufficient(fmt.Errorf("%w: need %d points for a day window, have %d",
			models.ErrInsufficientData, s.dayPoints, inst.History.Len()))
	}
	points := inst.History.Points()

	daily, missing := Slopes(points, s.dayPoints, s.bucketPoints)
	s.logMissing(inst.Ticker, "daily", missing)
	if len(daily) < 2 {
		return models.Insufficient(fmt.Errorf("%w: %d daily slopes", models.ErrInsufficientData, len(daily)))
	}
	if SameSign(daily) {
		return models.NoAction("sustained one-directional trend, do not chase it")
	}

	high, low := AskRange(points, s.dayPoints)
	ask := points[0].Ask
	if ask >= high || ask <= low {
		return models.NoAction(fmt.Sprintf("at daily extremum: ask %.2f, high %.2f, low %.2f", ask, high, low))
	}

	if !IsTrough(daily) {
		return models.NoAction("did not meet entry shape")
	}

	multi, missing := Slopes(points, s.multiDayPoints, s.dayBucketPoints)
	s.logMissing(inst.Ticker, "multi-day", missing)
	if len(multi) < 2 {
		return models.Insufficient(fmt.Errorf("%w: %d multi-day slopes", models.ErrInsufficientData, len(multi)))
	}
	if SameSign(multi) {
		return models.NoAction("sustained multi-day trend")
	}

	return models.Buy(fmt.Sprintf("coming out of a dip: ask %.2f, daily range %.2f..%.2f", ask, low, high))
}

func (s *Percent) logMissing(ticker, scale string, missing int) {
	if missing == 0 {
		return
	}
	s.log.Debug("bucket pairs skipped, history too short at the edge",
		zap.String("instrument", ticker),
		zap.String("scale", scale),
		zap.Int("skipped", missing),
	)
}
