package service

import (
	"coin_bot/internal/models"
)

// Slopes делит окно на корзины по bucket точек от самой свежей и считает
// средний наклон ask внутри каждой: (askNewer - askOlder) / bucket.
// Пары, для которых нет точки на границе, пропускаются и возвращаются в missing.
// Результат идёт от старой корзины к новой.
func Slopes(points []models.PricePoint, window, bucket int) (slopes []float64, missing int) {
	if bucket <= 0 || window < bucket {
		return nil, 0
	}
	n := window / bucket

	newestFirst := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		newer, older := i*bucket, (i+1)*bucket
		if older >= len(points) {
			missing++
			continue
		}
		newestFirst = append(newestFirst, (points[newer].Ask-points[older].Ask)/float64(bucket))
	}

	slopes = make([]float64, len(newestFirst))
	for i, s := range newestFirst {
		slopes[len(newestFirst)-1-i] = s
	}
	return slopes, missing
}

// SameSign - все наклоны строго одного знака. Нулевой наклон ломает серию.
func SameSign(slopes []float64) bool {
	if len(slopes) == 0 {
		return false
	}
	up, down := true, true
	for _, s := range slopes {
		if s <= 0 {
			up = false
		}
		if s >= 0 {
			down = false
		}
	}
	return up || down
}

// IsTrough - последний наклон вверх, предыдущий вниз.
func IsTrough(slopes []float64) bool {
	n := len(slopes)
	if n < 2 {
		return false
	}
	return slopes[n-1] > 0 && slopes[n-2] < 0
}

// AskRange - максимум и минимум ask по первым n точкам.
func AskRange(points []models.PricePoint, n int) (high, low float64) {
	n = min(n, len(points))
	if n == 0 {
		return 0, 0
	}
	high, low = points[0].Ask, points[0].Ask
	for _, p := range points[1:n] {
		high = max(high, p.Ask)
		low = min(low, p.Ask)
	}
	return high, low
}
