package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

type fakeGateway struct {
	mu       sync.Mutex
	book     models.OrderBook
	balances map[string]float64
	bookErr  error
	balErr   error
	orderErr error
	orders   []models.OrderRequest
}

func newFakeGateway(bid, ask float64) *fakeGateway {
	return &fakeGateway{
		book:     models.OrderBook{Bid: bid, Ask: ask},
		balances: map[string]float64{"USD": 1000, "BTC": 0.5},
	}
}

func (g *fakeGateway) setBook(bid, ask float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.book = models.OrderBook{Bid: bid, Ask: ask}
}

func (g *fakeGateway) OrderBook(_ context.Context, _ string) (models.OrderBook, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bookErr != nil {
		return models.OrderBook{}, g.bookErr
	}
	return g.book, nil
}

func (g *fakeGateway) AccountBalance(_ context.Context, accountID string) (models.Balance, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.balErr != nil {
		return models.Balance{}, g.balErr
	}
	v, ok := g.balances[accountID]
	if !ok {
		return models.Balance{}, fmt.Errorf("unknown account %s", accountID)
	}
	return models.Balance{AccountID: accountID, Available: v}, nil
}

func (g *fakeGateway) PlaceMarketOrder(_ context.Context, req models.OrderRequest) (models.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orderErr != nil {
		return models.OrderResult{}, g.orderErr
	}
	g.orders = append(g.orders, req)
	return models.OrderResult{ID: req.ClientOID, Status: "done"}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	points    []models.PricePoint
	txns      []models.Transaction
	snapshots []instrument.Snapshot
	err       error
}

func (s *fakeStore) AppendPoint(_ context.Context, _ string, p models.PricePoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, p)
	return s.err
}

func (s *fakeStore) AppendTransaction(_ context.Context, _ string, tx models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txns = append(s.txns, tx)
	return s.err
}

func (s *fakeStore) SaveSnapshot(_ context.Context, snap instrument.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return s.err
}

func (s *fakeStore) LoadSnapshot(context.Context, string, int) (instrument.Snapshot, bool, error) {
	return instrument.Snapshot{}, false, errors.New("not used")
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *fakeNotifier) Send(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
}

func (n *fakeNotifier) Sendf(format string, args ...any) { n.Send(fmt.Sprintf(format, args...)) }

// scriptedEngine отдаёт заранее заданные решения по очереди, дальше - NoAction.
type scriptedEngine struct {
	decisions []models.Decision
	cooldown  bool
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) Decide(*instrument.Instrument) models.Decision {
	if len(e.decisions) == 0 {
		return models.NoAction("idle")
	}
	d := e.decisions[0]
	e.decisions = e.decisions[1:]
	return d
}

func (e *scriptedEngine) ArmsCooldown() bool { return e.cooldown }

type statusSink struct {
	mu   sync.Mutex
	last instrument.Status
	n    int
}

func (s *statusSink) Publish(st instrument.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = st
	s.n++
}
