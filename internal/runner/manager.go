package runner

import (
	"context"
	"fmt"
	"sync"
)

// Manager держит раннеры по тикеру.
type Manager struct {
	mu      sync.Mutex
	runners map[string]*Runner
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewManager() *Manager {
	return &Manager{
		runners: make(map[string]*Runner),
	}
}

// Start запускает раннеры в отдельных горутинах. Повторный тикер - ошибка.
func (m *Manager) Start(parent context.Context, runners ...*Runner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range runners {
		if _, running := m.runners[r.Ticker()]; running {
			return fmt.Errorf("runner already running for %s", r.Ticker())
		}
	}

	if m.cancel == nil {
		m.ctx, m.cancel = context.WithCancel(parent)
	}
	ctx := m.ctx

	for _, r := range runners {
		m.runners[r.Ticker()] = r
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			r.Run(ctx)
		}()
	}
	return nil
}

// Stop гасит все раннеры и ждёт, пока они сохранят снапшоты.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.runners = make(map[string]*Runner)
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.runners))
	for t := range m.runners {
		out = append(out, t)
	}
	return out
}
