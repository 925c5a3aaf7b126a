package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coin_bot/internal/models"
)

func asks(values ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(values))
	for i, v := range values {
		out[i] = models.PricePoint{Ask: v}
	}
	return out
}

func TestSlopesOldestFirst(t *testing.T) {
	// newest-first: 10, 8, 6, 7, 9
	points := asks(10, 8, 6, 7, 9)

	slopes, missing := Slopes(points, 4, 2)
	assert.Zero(t, missing)
	// пары (0,2) и (2,4): (10-6)/2 = 2, (6-9)/2 = -1.5; на выходе от старой к новой
	assert.Equal(t, []float64{-1.5, 2}, slopes)
}

func TestSlopesSkipsMissingEdge(t *testing.T) {
	points := asks(10, 8, 6, 7)

	slopes, missing := Slopes(points, 4, 2)
	assert.Equal(t, 1, missing)
	assert.Equal(t, []float64{2}, slopes)
}

func TestSlopesDegenerate(t *testing.T) {
	slopes, missing := Slopes(asks(1, 2, 3), 1, 2)
	assert.Empty(t, slopes)
	assert.Zero(t, missing)

	slopes, _ = Slopes(asks(1, 2, 3), 2, 0)
	assert.Empty(t, slopes)
}

func TestSameSign(t *testing.T) {
	assert.True(t, SameSign([]float64{1, 2, 0.1}))
	assert.True(t, SameSign([]float64{-1, -2}))
	assert.False(t, SameSign([]float64{1, -2}))
	assert.False(t, SameSign([]float64{1, 0, 2}))
	assert.False(t, SameSign(nil))
}

func TestIsTrough(t *testing.T) {
	assert.True(t, IsTrough([]float64{3, -1, 0.5}))
	assert.False(t, IsTrough([]float64{-1, -0.5}))
	assert.False(t, IsTrough([]float64{1, 1}))
	assert.False(t, IsTrough([]float64{0, 1}))
	assert.False(t, IsTrough([]float64{1}))
}

func TestAskRange(t *testing.T) {
	high, low := AskRange(asks(5, 9, 1, 100), 3)
	assert.Equal(t, 9.0, high)
	assert.Equal(t, 1.0, low)

	high, low = AskRange(nil, 3)
	assert.Zero(t, high)
	assert.Zero(t, low)
}
