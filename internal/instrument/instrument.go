package instrument

import (
	"time"

	"github.com/google/uuid"

	"coin_bot/internal/history"
	"coin_bot/internal/models"
)

// Instrument - состояние одного торгуемого тикера. Принадлежит одному раннеру,
// поэтому без блокировок; наружу отдаются только копии через Snapshot/Status.
type Instrument struct {
	Name      string
	Ticker    string
	AccountID string

	History *history.Bounded

	Holding      bool
	InitialRound bool

	Cooldown      bool
	CooldownTicks int

	Transactions []models.Transaction
}

func New(name, ticker, accountID string, capacity int) *Instrument {
	return &Instrument{
		Name:         name,
		Ticker:       ticker,
		AccountID:    accountID,
		History:      history.New(capacity),
		InitialRound: true,
	}
}

// Transition - таблица переходов позиции по направлению тренда.
func (i *Instrument) Transition(trendUp bool) models.Decision {
	switch {
	case trendUp && i.Holding:
		return models.NoAction("price up, holding position")
	case trendUp && i.InitialRound:
		return models.NoAction("ignore uptick, initial round")
	case trendUp:
		return models.Buy("price up, no position")
	case i.Holding:
		// первый даун-тик при позиции тоже снимает подавление
		i.InitialRound = false
		return models.Sell("price down, holding position")
	case i.InitialRound:
		i.InitialRound = false
		return models.NoAction("initial round cleared, next uptick is a clean buy")
	default:
		return models.NoAction("price down, holding cash")
	}
}

func (i *Instrument) LastTransaction() (models.Transaction, bool) {
	if len(i.Transactions) == 0 {
		return models.Transaction{}, false
	}
	return i.Transactions[len(i.Transactions)-1], true
}

// EntryPrice - цена последней покупки, если позиция открыта корректно.
func (i *Instrument) EntryPrice() (float64, error) {
	last, ok := i.LastTransaction()
	if !ok || last.Type != models.TxBuy {
		return 0, &models.ConsistencyError{Ticker: i.Ticker, Reason: "last transaction was not a buy"}
	}
	return last.Price, nil
}

func (i *Instrument) RecordBuy(ts time.Time, price, fee, size float64) (models.Transaction, error) {
	if i.Holding {
		return models.Transaction{}, &models.ConsistencyError{Ticker: i.Ticker, Reason: "buy while already holding"}
	}
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Type:      models.TxBuy,
		Price:     price,
		Fee:       fee,
		Size:      size,
	}
	i.Transactions = append(i.Transactions, tx)
	i.Holding = true
	return tx, nil
}

// RecordSell фиксирует продажу и возвращает пару buy/sell для расчёта прибыли.
func (i *Instrument) RecordSell(ts time.Time, price, fee, size float64, armCooldown bool) (models.Transaction, models.Transaction, error) {
	bought, ok := i.LastTransaction()
	if !ok || bought.Type != models.TxBuy {
		return models.Transaction{}, models.Transaction{}, &models.ConsistencyError{Ticker: i.Ticker, Reason: "last transaction was not a buy"}
	}
	tx := models.Transaction{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Type:      models.TxSell,
		Price:     price,
		Fee:       fee,
		Size:      size,
	}
	i.Transactions = append(i.Transactions, tx)
	i.Holding = false
	if armCooldown {
		i.Cooldown = true
		i.CooldownTicks = 0
	}
	return bought, tx, nil
}

// TickCooldown - один тик ожидания после продажи. true, если пауза закончилась.
func (i *Instrument) TickCooldown(limit int) bool {
	if !i.Cooldown {
		return true
	}
	i.CooldownTicks++
	if i.CooldownTicks >= limit {
		i.Cooldown = false
		i.CooldownTicks = 0
		return true
	}
	return false
}

// RealizedPnL: покупка уменьшает, продажа увеличивает, комиссия всегда вычитается.
func (i *Instrument) RealizedPnL() float64 {
	var sum float64
	for _, tx := range i.Transactions {
		if tx.Type == models.TxBuy {
			sum -= tx.Price + tx.Fee
		} else {
			sum += tx.Price - tx.Fee
		}
	}
	return sum
}
