package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"backtest_bot/internal/models"
)

// FormatReport: сводка прогона для Telegram (HTML-разметка).
func FormatReport(r *models.Report) string {
	var b strings.Builder
	m := r.Metrics

	fmt.Fprintf(&b, "📊 <b>Backtest %s</b> | %s\n", html.EscapeString(r.Symbol), r.FinishedAt.UTC().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "run: <code>%s</code> source: %s strategy: %s\n\n",
		r.RunID, html.EscapeString(r.Source), html.EscapeString(r.Strategy))

	fmt.Fprintf(&b, "Шагов: %d | входов: %d | сделок: %d\n", r.Steps, r.Entries, m.TotalTrades)
	fmt.Fprintf(&b, "Баланс: %.2f → %.2f (%+.2f%%)\n", m.InitialBalance, m.FinalBalance, m.TotalReturn)
	fmt.Fprintf(&b, "Win rate: %.2f%%\n", m.WinRate)
	if m.ProfitFactorInf() {
		b.WriteString("Profit factor: ∞\n")
	} else {
		fmt.Fprintf(&b, "Profit factor: %.2f\n", m.ProfitFactor)
	}
	fmt.Fprintf(&b, "Sharpe: %.3f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "Max drawdown: %.2f%%\n", m.MaxDrawdown)
	if r.Model.Trained {
		fmt.Fprintf(&b, "Модель: шаг %d, точность %.2f%%\n", r.Model.Step, r.Model.Accuracy*100)
	} else {
		b.WriteString("Модель: не обучена\n")
	}

	if p := r.OpenPosition; p != nil {
		fmt.Fprintf(&b, "\n⏳ Открыта позиция %s qty=%.6f @ %.4f с %s\n",
			p.Side, p.Qty, p.Entry, p.EntryTime.UTC().Format(time.RFC3339))
	}
	if d := r.FinishedAt.Sub(r.StartedAt); d > 0 {
		fmt.Fprintf(&b, "\n⏱ %s", d.Round(time.Millisecond))
	}
	return b.String()
}
