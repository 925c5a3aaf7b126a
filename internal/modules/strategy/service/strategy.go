package service

import (
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

// Engine превращает состояние инструмента в решение на текущий тик.
// Ожидаемые исходы (нет сигнала, мало данных) идут через Decision, а не через панику.
type Engine interface {
	Name() string
	Decide(inst *instrument.Instrument) models.Decision
	// ArmsCooldown - ставить ли паузу после продажи
	ArmsCooldown() bool
}
