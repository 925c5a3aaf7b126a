package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coin_bot/internal/helper"
	"coin_bot/internal/models"
)

const coinStep = 1e-8

type PaperConfig struct {
	USDAccount string
	StartUSD   float64
	FeeRate    float64
	// ticker -> счёт монеты
	Accounts map[string]string
}

// Paper - биржа на бумаге: котировки настоящие, балансы и исполнение симулируются.
// Исполнение мгновенное по лучшей цене стакана, комиссия списывается в USD.
type Paper struct {
	quotes QuoteSource
	cfg    PaperConfig

	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

func NewPaper(quotes QuoteSource, cfg PaperConfig) *Paper {
	p := &Paper{
		quotes:   quotes,
		cfg:      cfg,
		balances: make(map[string]decimal.Decimal),
	}
	p.balances[cfg.USDAccount] = decimal.NewFromFloat(cfg.StartUSD)
	for _, acc := range cfg.Accounts {
		p.balances[acc] = decimal.Zero
	}
	return p
}

func (p *Paper) OrderBook(ctx context.Context, ticker string) (models.OrderBook, error) {
	return p.quotes.OrderBook(ctx, ticker)
}

func (p *Paper) AccountBalance(ctx context.Context, accountID string) (models.Balance, error) {
	if err := ctx.Err(); err != nil {
		return models.Balance{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	bal, ok := p.balances[accountID]
	if !ok {
		return models.Balance{}, fmt.Errorf("paper: unknown account %q", accountID)
	}
	return models.Balance{AccountID: accountID, Available: bal.InexactFloat64()}, nil
}

// SetBalance - для восстановления позиции после рестарта.
func (p *Paper) SetBalance(accountID string, available float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[accountID] = decimal.NewFromFloat(available)
}

func (p *Paper) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error) {
	coinAcc, ok := p.cfg.Accounts[req.Ticker]
	if !ok {
		return models.OrderResult{}, fmt.Errorf("paper: unknown instrument %s", req.Ticker)
	}
	book, err := p.quotes.OrderBook(ctx, req.Ticker)
	if err != nil {
		return models.OrderResult{}, err
	}

	fee := decimal.NewFromFloat(p.cfg.FeeRate)

	p.mu.Lock()
	defer p.mu.Unlock()

	usd := p.balances[p.cfg.USDAccount]
	coin := p.balances[coinAcc]

	switch req.Side {
	case models.SideBuy:
		funds := decimal.NewFromFloat(req.Funds)
		if funds.LessThanOrEqual(decimal.Zero) || funds.GreaterThan(usd) {
			return models.OrderResult{}, fmt.Errorf("paper: insufficient funds %s (available %s)", funds, usd)
		}
		net := funds.Sub(funds.Mul(fee))
		size := helper.RoundDownToTick(net.Div(decimal.NewFromFloat(book.Ask)).InexactFloat64(), coinStep)
		p.balances[p.cfg.USDAccount] = usd.Sub(funds)
		p.balances[coinAcc] = coin.Add(decimal.NewFromFloat(size))
	case models.SideSell:
		size := decimal.NewFromFloat(req.Size)
		if size.LessThanOrEqual(decimal.Zero) || size.GreaterThan(coin) {
			return models.OrderResult{}, fmt.Errorf("paper: insufficient size %s (available %s)", size, coin)
		}
		gross := size.Mul(decimal.NewFromFloat(book.Bid))
		p.balances[coinAcc] = coin.Sub(size)
		p.balances[p.cfg.USDAccount] = usd.Add(gross.Sub(gross.Mul(fee)))
	default:
		return models.OrderResult{}, fmt.Errorf("paper: unknown side %q", req.Side)
	}

	id := req.ClientOID
	if id == "" {
		id = uuid.NewString()
	}
	return models.OrderResult{ID: id, Status: "done"}, nil
}
