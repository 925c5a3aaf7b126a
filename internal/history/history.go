package history

import (
	"fmt"

	"coin_bot/internal/models"
)

// Bounded - окно цен фиксированной ёмкости, новые точки в начале.
// Вытеснение строго по ёмкости, возраст точек не учитывается.
type Bounded struct {
	capacity int
	points   []models.PricePoint
}

func New(capacity int) *Bounded {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded{
		capacity: capacity,
		points:   make([]models.PricePoint, 0, capacity),
	}
}

// Push вставляет точку в начало и выкидывает самую старую при переполнении.
func (b *Bounded) Push(p models.PricePoint) {
	if len(b.points) < b.capacity {
		b.points = append(b.points, models.PricePoint{})
	}
	copy(b.points[1:], b.points[:len(b.points)-1])
	b.points[0] = p
}

func (b *Bounded) Len() int { return len(b.points) }
func (b *Bounded) Cap() int { return b.capacity }

// WindowFrom возвращает копию n самых свежих точек.
func (b *Bounded) WindowFrom(n int) ([]models.PricePoint, error) {
	if n < 0 || n > len(b.points) {
		return nil, fmt.Errorf("%w: need %d points, have %d", models.ErrInsufficientData, n, len(b.points))
	}
	out := make([]models.PricePoint, n)
	copy(out, b.points[:n])
	return out, nil
}

func (b *Bounded) Latest() (models.PricePoint, bool) {
	if len(b.points) == 0 {
		return models.PricePoint{}, false
	}
	return b.points[0], true
}

// Points - копия всего окна для снапшота.
func (b *Bounded) Points() []models.PricePoint {
	out := make([]models.PricePoint, len(b.points))
	copy(out, b.points)
	return out
}

// Restore поднимает окно из снапшота (newest-first), лишнее отрезается.
func (b *Bounded) Restore(points []models.PricePoint) {
	if len(points) > b.capacity {
		points = points[:b.capacity]
	}
	b.points = make([]models.PricePoint, len(points), b.capacity)
	copy(b.points, points)
}
