package service

import (
	"fmt"

	"go.uber.org/zap"

	"coin_bot/internal/models"
	"coin_bot/internal/modules/config"
)

func NewEngine(cfg *config.Config, log *zap.Logger) (Engine, error) {
	switch models.StrategyType(cfg.Trading.Strategy) {
	case models.StrategyMoving:
		return NewMovingAverage(cfg.Trading.ShortPeriods, cfg.Trading.LongPeriods), nil
	case models.StrategyPercent:
		return NewPercent(PercentParamsFrom(cfg), log), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Trading.Strategy)
	}
}
