package models

import "time"

// PricePoint - снимок лучшего bid/ask на момент опроса. После создания не меняется.
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Sequence  int64     `json:"sequence"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	BidSize   float64   `json:"bid_size,omitempty"`
	AskSize   float64   `json:"ask_size,omitempty"`
}

// OrderBook - верх стакана (level=1).
type OrderBook struct {
	Sequence int64
	Bid      float64
	Ask      float64
	BidSize  float64
	AskSize  float64
}

func (b OrderBook) Point(ts time.Time) PricePoint {
	return PricePoint{
		Timestamp: ts,
		Sequence:  b.Sequence,
		Bid:       b.Bid,
		Ask:       b.Ask,
		BidSize:   b.BidSize,
		AskSize:   b.AskSize,
	}
}

type Balance struct {
	AccountID string
	Currency  string
	Available float64
}

// OrderRequest - market-ордер: для покупки задаётся Funds (в USD), для продажи Size (в монете).
type OrderRequest struct {
	ClientOID string
	Side      Side
	Ticker    string
	Funds     float64
	Size      float64
}

type OrderResult struct {
	ID     string
	Status string
}
