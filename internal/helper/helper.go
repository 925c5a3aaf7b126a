package helper

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 - до центов, половина от нуля (decimal.Round так и округляет).
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Mul2 - round2(a*b) без накопления двоичной погрешности.
func Mul2(a, b float64) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2).InexactFloat64()
}

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

// NormTicker: "btc_usd" / "btc-usd" -> "BTC-USD".
func NormTicker(raw string) string {
	s := strings.TrimSpace(strings.ToUpper(raw))
	return strings.ReplaceAll(s, "_", "-")
}

// SplitTicker: "BTC-USD" -> ("BTC", "USD").
func SplitTicker(ticker string) (base string, quote string, ok bool) {
	i := strings.IndexByte(ticker, '-')
	if i <= 0 || i >= len(ticker)-1 {
		return "", "", false
	}
	return ticker[:i], ticker[i+1:], true
}

// Mean2 - среднее, округлённое до центов.
func Mean2(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(2).InexactFloat64()
}
