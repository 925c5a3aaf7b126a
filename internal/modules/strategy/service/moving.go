package service

import (
	"errors"
	"fmt"

	"coin_bot/internal/helper"
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

type Series string

const (
	SeriesBid Series = "bid"
	SeriesAsk Series = "ask"
)

type Averages struct {
	Series Series
	Short  float64
	Long   float64
}

// TrendUp - равенство средних трендом вверх не считается.
func (a Averages) TrendUp() bool { return a.Short > a.Long }

// CalcAverages - скользящие средние по ask при открытой позиции и по bid без неё.
func CalcAverages(points []models.PricePoint, short, long int, holding bool) (Averages, error) {
	if long <= 0 || short <= 0 || short > long {
		return Averages{}, fmt.Errorf("bad periods short=%d long=%d", short, long)
	}
	if len(points) < long {
		return Averages{}, fmt.Errorf("%w: need %d points, have %d", models.ErrInsufficientData, long, len(points))
	}

	series := SeriesBid
	if holding {
		series = SeriesAsk
	}
	values := make([]float64, long)
	for i := 0; i < long; i++ {
		if holding {
			values[i] = points[i].Ask
		} else {
			values[i] = points[i].Bid
		}
	}

	return Averages{
		Series: series,
		Short:  helper.Mean2(values[:short]),
		Long:   helper.Mean2(values),
	}, nil
}

type MovingAverage struct {
	short int
	long  int
}

func NewMovingAverage(short, long int) *MovingAverage {
	return &MovingAverage{short: short, long: long}
}

func (m *MovingAverage) Name() string       { return string(models.StrategyMoving) }
func (m *MovingAverage) ArmsCooldown() bool { return false }

func (m *MovingAverage) Decide(inst *instrument.Instrument) models.Decision {
	window, err := inst.History.WindowFrom(min(m.long, inst.History.Len()))
	if err != nil {
		return models.Insufficient(err)
	}
	avg, err := CalcAverages(window, m.short, m.long, inst.Holding)
	if errors.Is(err, models.ErrInsufficientData) {
		return models.Insufficient(err)
	}
	if err != nil {
		return models.Fail(err)
	}

	d := inst.Transition(avg.TrendUp())
	d.Reason = fmt.Sprintf("%s (%s short=%.2f long=%.2f)", d.Reason, avg.Series, avg.Short, avg.Long)
	return d
}
