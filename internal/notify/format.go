package notify

import (
	"fmt"
	"strings"

	"coin_bot/internal/accounting"
	"coin_bot/internal/instrument"
	"coin_bot/internal/models"
)

func FormatStatus(statuses []instrument.Status) string {
	if len(statuses) == 0 {
		return "📭 Инструментов нет"
	}

	var b strings.Builder
	b.WriteString("📊 Инструменты:\n")
	for _, st := range statuses {
		pos := "вне позиции"
		if st.Holding {
			pos = "в позиции"
		}
		points := fmt.Sprint(st.DataLength)
		if st.Capacity > 0 {
			points += fmt.Sprintf("/%d", st.Capacity)
		}
		fmt.Fprintf(&b, "- %s: %s, точек=%s, сделок=%d, pnl=%.2f",
			st.Ticker, pos, points, st.TxCount, st.RealizedPnL)
		if st.Cooldown {
			b.WriteString(", cooldown")
		}
		if st.LastDecision != "" {
			fmt.Fprintf(&b, "\n  %s", st.LastDecision)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func FormatTotals(s accounting.Summary) string {
	return fmt.Sprintf("💰 Прибыль: %.2f USD\n🧾 Комиссии: %.2f USD", s.Profit, s.Fees)
}

// FormatTrade - уведомление об исполненной сделке.
func FormatTrade(ticker string, tx models.Transaction) string {
	emoji := "🟢"
	if tx.Type == models.TxSell {
		emoji = "🔴"
	}
	return fmt.Sprintf("%s %s %s по %.2f (fee %.2f)", emoji, strings.ToUpper(string(tx.Type)), ticker, tx.Price, tx.Fee)
}
