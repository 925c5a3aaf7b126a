package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"coin_bot/internal/accounting"
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

func TestFormatStatus(t *testing.T) {
	assert.Equal(t, "📭 Инструментов нет", FormatStatus(nil))

	out := FormatStatus([]instrument.Status{
		{Ticker: "BTC-USD", Holding: true, DataLength: 120, Capacity: 4321, TxCount: 1, LastDecision: "buy: trend up"},
		{Ticker: "ETH-USD", Cooldown: true, RealizedPnL: 4.38},
	})
	assert.Contains(t, out, "BTC-USD: в позиции, точек=120/4321, сделок=1")
	assert.Contains(t, out, "buy: trend up")
	assert.Contains(t, out, "ETH-USD: вне позиции")
	assert.Contains(t, out, "pnl=4.38, cooldown")
}

func TestFormatTotals(t *testing.T) {
	assert.Equal(t, "💰 Прибыль: 4.38 USD\n🧾 Комиссии: 0.62 USD",
		FormatTotals(accounting.Summary{Profit: 4.38, Fees: 0.62}))
}

func TestFormatTrade(t *testing.T) {
	assert.Equal(t, "🟢 BUY BTC-USD по 100.00 (fee 0.30)",
		FormatTrade("BTC-USD", models.Transaction{Type: models.TxBuy, Price: 100, Fee: 0.3}))
	assert.Equal(t, "🔴 SELL BTC-USD по 105.00 (fee 0.32)",
		FormatTrade("BTC-USD", models.Transaction{Type: models.TxSell, Price: 105, Fee: 0.32}))
}

func TestNilTelegramIsSilent(t *testing.T) {
	var tg *Telegram
	assert.NotPanics(t, func() {
		tg.Send("x")
		tg.Stop()
	})
	assert.NotPanics(t, func() { NewStdout(zap.NewNop()).Sendf("%d", 1) })
}
