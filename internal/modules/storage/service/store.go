package service

import (
	"context"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

// Store - долговременное хранение: поток цен (долгая история для исследований),
// журнал сделок и снапшот состояния инструмента для рестарта.
type Store interface {
	AppendPoint(ctx context.Context, ticker string, p models.PricePoint) error
	AppendTransaction(ctx context.Context, ticker string, tx models.Transaction) error
	SaveSnapshot(ctx context.Context, snap instrument.Snapshot) error
	// LoadSnapshot: limit - сколько свежих точек поднимать; ok=false если состояния нет
	LoadSnapshot(ctx context.Context, ticker string, limit int) (snap instrument.Snapshot, ok bool, err error)
	Close() error
}
