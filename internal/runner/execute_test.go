package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coin_bot/internal/accounting"
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

func newTestExecutor(gw *fakeGateway) (*Executor, *accounting.Totals) {
	totals := accounting.NewTotals()
	return NewExecutor(gw, totals, ExecConfig{
		USDAccount:  "USD",
		FeeRate:     0.003,
		BuyFraction: 0.49,
	}, zap.NewNop()), totals
}

func TestExecutorRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway(99.5, 100)
	exec, totals := newTestExecutor(gw)
	inst := instrument.New("btc", "BTC-USD", "BTC", 10)

	fill, err := exec.Execute(ctx, inst, models.Buy("trend up"), false)
	require.NoError(t, err)
	assert.Equal(t, models.TxBuy, fill.Tx.Type)
	assert.Equal(t, 100.0, fill.Tx.Price)
	assert.Equal(t, 0.3, fill.Tx.Fee)
	assert.True(t, inst.Holding)

	require.Len(t, gw.orders, 1)
	assert.Equal(t, models.SideBuy, gw.orders[0].Side)
	assert.Equal(t, 490.0, gw.orders[0].Funds)
	assert.NotEmpty(t, gw.orders[0].ClientOID)

	gw.setBook(105, 105.5)
	fill, err = exec.Execute(ctx, inst, models.Sell("trend down"), true)
	require.NoError(t, err)
	assert.Equal(t, models.TxSell, fill.Tx.Type)
	assert.Equal(t, 105.0, fill.Tx.Price)
	assert.Equal(t, 0.32, fill.Tx.Fee)
	assert.InDelta(t, 4.38, fill.Profit, 1e-9)
	assert.False(t, inst.Holding)
	assert.True(t, inst.Cooldown)

	require.Len(t, gw.orders, 2)
	assert.Equal(t, models.SideSell, gw.orders[1].Side)
	assert.Equal(t, 0.5, gw.orders[1].Size)

	sum := totals.Summary()
	assert.InDelta(t, 4.38, sum.Profit, 1e-9)
	assert.InDelta(t, 0.62, sum.Fees, 1e-9)
}

func TestExecutorBalanceFailureRecordsNothing(t *testing.T) {
	gw := newFakeGateway(99.5, 100)
	gw.balErr = errors.New("503")
	exec, totals := newTestExecutor(gw)
	inst := instrument.New("btc", "BTC-USD", "BTC", 10)

	fill, err := exec.Execute(context.Background(), inst, models.Buy("trend up"), false)
	require.Error(t, err)
	assert.Nil(t, fill)

	var gerr *models.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Empty(t, gw.orders)
	assert.Empty(t, inst.Transactions)
	assert.False(t, inst.Holding)
	assert.Zero(t, totals.Summary().Fees)
}

func TestExecutorOrderFailureRecordsNothing(t *testing.T) {
	gw := newFakeGateway(99.5, 100)
	gw.orderErr = errors.New("insufficient funds")
	exec, totals := newTestExecutor(gw)
	inst := instrument.New("btc", "BTC-USD", "BTC", 10)

	_, err := exec.Execute(context.Background(), inst, models.Buy("trend up"), false)
	var gerr *models.GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "place buy", gerr.Op)
	assert.Empty(t, inst.Transactions)
	assert.False(t, inst.Holding)
	assert.Zero(t, totals.Summary().Fees)
}

func TestExecutorSellWithoutBuy(t *testing.T) {
	gw := newFakeGateway(99.5, 100)
	exec, _ := newTestExecutor(gw)
	inst := instrument.New("btc", "BTC-USD", "BTC", 10)

	_, err := exec.Execute(context.Background(), inst, models.Sell("trend down"), false)
	var cerr *models.ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Empty(t, gw.orders)
	assert.Empty(t, inst.Transactions)
}

func TestExecutorIgnoresNoAction(t *testing.T) {
	gw := newFakeGateway(99.5, 100)
	exec, _ := newTestExecutor(gw)
	inst := instrument.New("btc", "BTC-USD", "BTC", 10)

	fill, err := exec.Execute(context.Background(), inst, models.NoAction("hold"), false)
	require.NoError(t, err)
	assert.Nil(t, fill)
	assert.Empty(t, gw.orders)
}
