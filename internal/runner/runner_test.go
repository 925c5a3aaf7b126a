package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/jaeger-client-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
	strategy "coin_bot/internal/modules/strategy/service"
)

type harness struct {
	gw     *fakeGateway
	store  *fakeStore
	notif  *fakeNotifier
	status *statusSink
	inst   *instrument.Instrument
}

func newHarness(t *testing.T, engine strategy.Engine) (*Runner, *harness) {
	t.Helper()
	h := &harness{
		gw:     newFakeGateway(99.5, 100),
		store:  &fakeStore{},
		notif:  &fakeNotifier{},
		status: &statusSink{},
		inst:   instrument.New("btc", "BTC-USD", "BTC", 10),
	}
	exec, _ := newTestExecutor(h.gw)
	r := New(h.inst, Deps{
		Engine:   engine,
		Quotes:   h.gw,
		Executor: exec,
		Store:    h.store,
		Notifier: h.notif,
		Status:   h.status,
		Log:      zap.NewNop(),
		Poll:     10 * time.Millisecond,
		Timeout:  time.Second,
	})
	return r, h
}

func TestCycleInsufficientDataLeavesStateAlone(t *testing.T) {
	r, h := newHarness(t, strategy.NewMovingAverage(2, 3))

	d := r.Cycle(context.Background())
	assert.True(t, d.InsufficientData())
	assert.Equal(t, models.ActionNone, d.Action)

	assert.Equal(t, 1, h.inst.History.Len())
	assert.True(t, h.inst.InitialRound)
	assert.False(t, h.inst.Holding)
	assert.Empty(t, h.inst.Transactions)
	assert.Empty(t, h.gw.orders)

	assert.Len(t, h.store.points, 1)
	assert.Equal(t, 1, h.store.snapshotCount())
	assert.Equal(t, 1, h.status.n)
	assert.Equal(t, 1, h.status.last.DataLength)
}

func TestCycleBuyThenSell(t *testing.T) {
	engine := &scriptedEngine{decisions: []models.Decision{models.Buy("up"), models.Sell("down")}}
	r, h := newHarness(t, engine)
	ctx := context.Background()

	d := r.Cycle(ctx)
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.True(t, h.inst.Holding)
	require.Len(t, h.store.txns, 1)
	assert.Equal(t, models.TxBuy, h.store.txns[0].Type)

	h.gw.setBook(105, 105.5)
	d = r.Cycle(ctx)
	assert.Equal(t, models.ActionSell, d.Action)
	assert.False(t, h.inst.Holding)
	require.Len(t, h.store.txns, 2)
	assert.Equal(t, models.TxSell, h.store.txns[1].Type)

	require.Len(t, h.notif.msgs, 2)
	assert.Contains(t, h.notif.msgs[1], "прибыль 4.38")

	// снапшот после каждого цикла
	assert.Equal(t, 2, h.store.snapshotCount())
	assert.True(t, h.status.last.UpdatedAt.After(time.Time{}))
	assert.Equal(t, "sell: down", h.status.last.LastDecision)
}

func TestCycleQuoteFailure(t *testing.T) {
	r, h := newHarness(t, &scriptedEngine{decisions: []models.Decision{models.Buy("up")}})
	h.gw.bookErr = errors.New("timeout")

	d := r.Cycle(context.Background())
	assert.Equal(t, models.ActionError, d.Action)
	var gerr *models.GatewayError
	require.ErrorAs(t, d.Err, &gerr)

	assert.Zero(t, h.inst.History.Len())
	assert.Empty(t, h.inst.Transactions)
	assert.Empty(t, h.store.points)
}

func TestCycleExecutionFailureKeepsRunning(t *testing.T) {
	r, h := newHarness(t, &scriptedEngine{decisions: []models.Decision{models.Buy("up"), models.Buy("up")}})
	h.gw.orderErr = errors.New("rejected")
	ctx := context.Background()

	d := r.Cycle(ctx)
	assert.Equal(t, models.ActionError, d.Action)
	assert.False(t, h.inst.Holding)
	assert.Empty(t, h.store.txns)
	require.Len(t, h.notif.msgs, 1)
	assert.Contains(t, h.notif.msgs[0], "не исполнен")

	h.gw.mu.Lock()
	h.gw.orderErr = nil
	h.gw.mu.Unlock()

	d = r.Cycle(ctx)
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.True(t, h.inst.Holding)
}

func TestCycleStoreErrorsDoNotAbort(t *testing.T) {
	r, h := newHarness(t, &scriptedEngine{decisions: []models.Decision{models.Buy("up")}})
	h.store.err = errors.New("disk full")

	d := r.Cycle(context.Background())
	assert.Equal(t, models.ActionBuy, d.Action)
	assert.True(t, h.inst.Holding)
}

func TestCycleLogsTraceID(t *testing.T) {
	tracer, closer := jaeger.NewTracer("test", jaeger.NewConstSampler(true), jaeger.NewNullReporter())
	opentracing.SetGlobalTracer(tracer)
	t.Cleanup(func() {
		opentracing.SetGlobalTracer(opentracing.NoopTracer{})
		_ = closer.Close()
	})

	r, _ := newHarness(t, &scriptedEngine{})
	core, logs := observer.New(zapcore.DebugLevel)
	r.log = zap.New(core)

	r.Cycle(context.Background())

	entries := logs.FilterMessage("decision").All()
	require.Len(t, entries, 1)
	id, ok := entries[0].ContextMap()["trace_id"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
}

func TestCycleWithoutTracerLogsNoTraceID(t *testing.T) {
	r, _ := newHarness(t, &scriptedEngine{})
	core, logs := observer.New(zapcore.DebugLevel)
	r.log = zap.New(core)

	r.Cycle(context.Background())

	entries := logs.FilterMessage("decision").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "trace_id")
}

func TestManagerStartStop(t *testing.T) {
	r, h := newHarness(t, &scriptedEngine{})
	m := NewManager()

	require.NoError(t, m.Start(context.Background(), r))
	assert.Equal(t, []string{"BTC-USD"}, m.Running())
	require.Error(t, m.Start(context.Background(), r))

	require.Eventually(t, func() bool { return h.store.snapshotCount() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
	assert.Empty(t, m.Running())

	// после остановки снапшоты больше не пишутся
	n := h.store.snapshotCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, h.store.snapshotCount())
}
