package accounting

import (
	"sync"

	"github.com/shopspring/decimal"

	"coin_bot/internal/models"
)

// Totals - общие на процесс прибыль и комиссии. Единственное разделяемое
// между раннерами состояние, все изменения под мьютексом.
type Totals struct {
	mu     sync.Mutex
	profit decimal.Decimal
	fees   decimal.Decimal
}

type Summary struct {
	Profit float64 `json:"total_profit"`
	Fees   float64 `json:"total_fees"`
}

func NewTotals() *Totals {
	return &Totals{}
}

func (t *Totals) AddFee(fee float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fees = t.fees.Add(decimal.NewFromFloat(fee))
}

// AddRoundTrip учитывает завершённую пару buy/sell и возвращает прибыль по ней.
func (t *Totals) AddRoundTrip(bought, sold models.Transaction) float64 {
	profit := Profit(bought, sold)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.profit = t.profit.Add(profit)
	return profit.InexactFloat64()
}

func (t *Totals) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Profit: t.profit.InexactFloat64(),
		Fees:   t.fees.InexactFloat64(),
	}
}

// Replay пересчитывает итоги по восстановленному журналу одного инструмента.
func (t *Totals) Replay(txs []models.Transaction) {
	var bought *models.Transaction
	for i := range txs {
		tx := txs[i]
		t.AddFee(tx.Fee)
		switch tx.Type {
		case models.TxBuy:
			bought = &txs[i]
		case models.TxSell:
			if bought != nil {
				t.AddRoundTrip(*bought, tx)
				bought = nil
			}
		}
	}
}

// Profit = sellPrice - sellFee - buyPrice - buyFee.
func Profit(bought, sold models.Transaction) decimal.Decimal {
	return decimal.NewFromFloat(sold.Price).
		Sub(decimal.NewFromFloat(sold.Fee)).
		Sub(decimal.NewFromFloat(bought.Price)).
		Sub(decimal.NewFromFloat(bought.Fee))
}

// CashFlow - изменение USD по журналу: покупка списывает funds (size*price/(1-fee)),
// продажа зачисляет выручку за вычетом комиссии.
func CashFlow(txs []models.Transaction, feeRate float64) decimal.Decimal {
	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(feeRate))
	flow := decimal.Zero
	if !keep.IsPositive() {
		return flow
	}
	for _, tx := range txs {
		gross := decimal.NewFromFloat(tx.Price).Mul(decimal.NewFromFloat(tx.Size))
		switch tx.Type {
		case models.TxBuy:
			flow = flow.Sub(gross.Div(keep))
		case models.TxSell:
			flow = flow.Add(gross.Mul(keep))
		}
	}
	return flow
}
