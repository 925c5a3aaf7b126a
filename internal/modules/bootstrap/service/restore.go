package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"coin_bot/internal/accounting"
	"coin_bot/internal/instrument"
	"coin_bot/internal/modules/config"
	storage "coin_bot/internal/modules/storage/service"
)

// BalanceSetter - бумажная биржа, которой после рестарта надо вернуть USD и монеты открытых позиций.
type BalanceSetter interface {
	SetBalance(accountID string, available float64)
}

// Restorer поднимает инструменты из хранилища: окно истории, сделки, флаги.
type Restorer struct {
	store  storage.Store
	totals *accounting.Totals
	log    *zap.Logger

	// ограничитель параллелизма на чтение бэкапов
	sem chan struct{}
}

func NewRestorer(store storage.Store, totals *accounting.Totals, log *zap.Logger) *Restorer {
	return &Restorer{
		store:  store,
		totals: totals,
		log:    log.Named("bootstrap"),
		sem:    make(chan struct{}, 4),
	}
}

// Restore создаёт инструменты по конфигу. Если бэкап битый или недоступен - стартуем с нуля,
// это не повод не запускаться. paper может быть nil.
func (r *Restorer) Restore(ctx context.Context, cfg *config.Config, paper BalanceSetter) []*instrument.Instrument {
	capacity := cfg.HistoryCapacity()
	out := make([]*instrument.Instrument, len(cfg.Instruments))

	var wg sync.WaitGroup
	for idx, ic := range cfg.Instruments {
		inst := instrument.New(ic.DisplayName(), ic.Ticker, ic.AccountID(), capacity)
		out[idx] = inst

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.sem <- struct{}{}
			defer func() { <-r.sem }()

			snap, ok, err := r.store.LoadSnapshot(ctx, inst.Ticker, capacity)
			if err != nil {
				r.log.Warn("snapshot load failed, starting fresh", zap.String("instrument", inst.Ticker), zap.Error(err))
				return
			}
			if !ok {
				r.log.Info("no snapshot, starting fresh", zap.String("instrument", inst.Ticker))
				return
			}
			inst.Restore(snap)
			r.log.Info("instrument restored",
				zap.String("instrument", inst.Ticker),
				zap.Int("points", inst.History.Len()),
				zap.Int("transactions", len(inst.Transactions)),
				zap.Bool("holding", inst.Holding),
				zap.Bool("initial_round", inst.InitialRound),
			)
		}()
	}
	wg.Wait()

	usd := decimal.NewFromFloat(cfg.Trading.PaperUSD)
	for _, inst := range out {
		r.totals.Replay(inst.Transactions)
		usd = usd.Add(accounting.CashFlow(inst.Transactions, cfg.Trading.FeeRate))
		if paper == nil || !inst.Holding {
			continue
		}
		if last, ok := inst.LastTransaction(); ok {
			paper.SetBalance(inst.AccountID, last.Size)
		}
	}
	if paper != nil {
		if usd.IsNegative() {
			usd = decimal.Zero
		}
		paper.SetBalance(cfg.USDAccount(), usd.InexactFloat64())
		r.log.Info("paper usd replayed", zap.Float64("usd", usd.InexactFloat64()))
	}

	sum := r.totals.Summary()
	r.log.Info("totals replayed", zap.Float64("profit", sum.Profit), zap.Float64("fees", sum.Fees))
	return out
}

// Describe - строка для стартового уведомления.
func Describe(insts []*instrument.Instrument) string {
	held := 0
	for _, inst := range insts {
		if inst.Holding {
			held++
		}
	}
	return fmt.Sprintf("🚀 Бот запущен: инструментов=%d, в позиции=%d", len(insts), held)
}
