package models

import "time"

type TxType string

const (
	TxBuy  TxType = "buy"
	TxSell TxType = "sell"
)

// Transaction создаётся только исполнением ордера, дальше не меняется.
type Transaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      TxType    `json:"type"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	// объём в монете: для покупки оценка funds/price, для продажи весь баланс
	Size float64 `json:"size,omitempty"`
}
