package service

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"coin_bot/internal/instrument"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	wsConnected  atomic.Bool
	lastTickUnix atomic.Int64 // unix seconds

	mu       sync.RWMutex
	statuses map[string]instrument.Status
}

func NewState() *State {
	s := &State{
		startedAt: time.Now(),
		statuses:  make(map[string]instrument.Status),
	}
	s.ready.Store(false)
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetWSConnected(v bool) { s.wsConnected.Store(v) }
func (s *State) WSConnected() bool     { return s.wsConnected.Load() }

func (s *State) TouchTick(t time.Time) { s.lastTickUnix.Store(t.Unix()) }
func (s *State) LastTick() time.Time {
	u := s.lastTickUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }

// Publish - раннер кладёт сюда копию состояния инструмента после каждого цикла.
func (s *State) Publish(st instrument.Status) {
	s.mu.Lock()
	s.statuses[st.Ticker] = st
	s.mu.Unlock()
	s.TouchTick(st.UpdatedAt)
}

// Statuses - снимок по всем инструментам, по тикеру.
func (s *State) Statuses() []instrument.Status {
	s.mu.RLock()
	out := make([]instrument.Status, 0, len(s.statuses))
	for _, st := range s.statuses {
		out = append(out, st)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
