package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{100.004, 100.00},
		{100.005, 100.01},
		{0.315, 0.32},
		{-0.315, -0.32},
		{2.675, 2.68},
		{1.0, 1.0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Round2(c.in), "in=%v", c.in)
	}
}

func TestMul2Fee(t *testing.T) {
	assert.Equal(t, 0.30, Mul2(100.00, 0.003))
	assert.Equal(t, 0.32, Mul2(105.00, 0.003))
	assert.Equal(t, 20.63, Mul2(6875.55, 0.003))
}

func TestRoundDownToTick(t *testing.T) {
	assert.InDelta(t, 0.12345678, RoundDownToTick(0.123456789, 1e-8), 1e-12)
	assert.Equal(t, 5.0, RoundDownToTick(5.0, 0))
}

func TestTickerHelpers(t *testing.T) {
	assert.Equal(t, "BTC-USD", NormTicker(" btc_usd "))

	base, quote, ok := SplitTicker("ETH-USD")
	assert.True(t, ok)
	assert.Equal(t, "ETH", base)
	assert.Equal(t, "USD", quote)

	_, _, ok = SplitTicker("ETHUSD")
	assert.False(t, ok)
}

func TestMean2(t *testing.T) {
	assert.Equal(t, 0.0, Mean2(nil))
	assert.Equal(t, 2.0, Mean2([]float64{1, 2, 3}))
	assert.Equal(t, 1.67, Mean2([]float64{1, 2, 2}))
	assert.Equal(t, 100.01, Mean2([]float64{100.00, 100.01}))
}
