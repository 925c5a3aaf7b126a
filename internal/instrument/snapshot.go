package instrument

import (
	"time"

	"coin_bot/internal/models"
)

// Snapshot - то, что уходит в хранилище и поднимается при старте.
type Snapshot struct {
	Ticker        string               `json:"ticker"`
	History       []models.PricePoint  `json:"history"`
	Transactions  []models.Transaction `json:"transactions"`
	Holding       bool                 `json:"holding"`
	InitialRound  bool                 `json:"initial_round"`
	Cooldown      bool                 `json:"cooldown"`
	CooldownTicks int                  `json:"cooldown_ticks"`
}

func (i *Instrument) Snapshot() Snapshot {
	txs := make([]models.Transaction, len(i.Transactions))
	copy(txs, i.Transactions)
	return Snapshot{
		Ticker:        i.Ticker,
		History:       i.History.Points(),
		Transactions:  txs,
		Holding:       i.Holding,
		InitialRound:  i.InitialRound,
		Cooldown:      i.Cooldown,
		CooldownTicks: i.CooldownTicks,
	}
}

// Restore поднимает состояние; holding выводится из последней транзакции,
// флаг из снапшота используется только при пустом журнале.
func (i *Instrument) Restore(s Snapshot) {
	i.History.Restore(s.History)
	i.Transactions = append([]models.Transaction(nil), s.Transactions...)
	i.InitialRound = s.InitialRound
	i.Cooldown = s.Cooldown
	i.CooldownTicks = s.CooldownTicks
	i.Holding = s.Holding
	if last, ok := i.LastTransaction(); ok {
		i.Holding = last.Type == models.TxBuy
	}
}

// Status - копия для дашборда и телеграма.
type Status struct {
	Name         string               `json:"name"`
	Ticker       string               `json:"ticker"`
	Holding      bool                 `json:"holding"`
	InitialRound bool                 `json:"initial_round"`
	Cooldown     bool                 `json:"cooldown"`
	DataLength   int                  `json:"data_length"`
	Capacity     int                  `json:"capacity"`
	TxCount      int                  `json:"transactions"`
	RealizedPnL  float64              `json:"realized_pnl"`
	LastDecision string               `json:"last_decision,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
	RecentPoints []models.PricePoint  `json:"recent_points"`
	RecentTxns   []models.Transaction `json:"recent_transactions"`
}

const statusDepth = 10

func (i *Instrument) Status(now time.Time, lastDecision string) Status {
	points, _ := i.History.WindowFrom(min(statusDepth, i.History.Len()))

	n := min(statusDepth, len(i.Transactions))
	txs := make([]models.Transaction, n)
	copy(txs, i.Transactions[len(i.Transactions)-n:])

	return Status{
		Name:         i.Name,
		Ticker:       i.Ticker,
		Holding:      i.Holding,
		InitialRound: i.InitialRound,
		Cooldown:     i.Cooldown,
		DataLength:   i.History.Len(),
		Capacity:     i.History.Cap(),
		TxCount:      len(i.Transactions),
		RealizedPnL:  i.RealizedPnL(),
		LastDecision: lastDecision,
		UpdatedAt:    now,
		RecentPoints: points,
		RecentTxns:   txs,
	}
}
