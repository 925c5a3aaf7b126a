package service

import (
	"context"

	"coin_bot/internal/models"
)

// QuoteSource отдаёт верх стакана по тикеру.
type QuoteSource interface {
	OrderBook(ctx context.Context, ticker string) (models.OrderBook, error)
}

// Gateway - всё, что нужно циклу от биржи. Все вызовы независимы и могут упасть.
type Gateway interface {
	QuoteSource
	AccountBalance(ctx context.Context, accountID string) (models.Balance, error)
	PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (models.OrderResult, error)
}
