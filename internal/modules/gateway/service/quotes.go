package service

import (
	"context"

	"go.uber.org/zap"

	"coin_bot/internal/models"
)

// Streamed - гейтвей, у которого котировки берутся из потока, а при протухшем
// потоке из REST.
type Streamed struct {
	Gateway
	stream QuoteSource
	log    *zap.Logger
}

func NewStreamed(gw Gateway, stream QuoteSource, log *zap.Logger) *Streamed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Streamed{Gateway: gw, stream: stream, log: log}
}

func (s *Streamed) OrderBook(ctx context.Context, ticker string) (models.OrderBook, error) {
	book, err := s.stream.OrderBook(ctx, ticker)
	if err == nil {
		return book, nil
	}
	s.log.Debug("stream quote unavailable, falling back to rest", zap.String("instrument", ticker), zap.Error(err))
	return s.Gateway.OrderBook(ctx, ticker)
}
