package notify

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"backtest_bot/internal/models"
)

func TestFormatReport(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &models.Report{
		RunID:      "run-1",
		Symbol:     "ETHUSDT",
		Source:     "csv",
		Strategy:   "bollinger",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Steps:      100,
		Entries:    3,
		Metrics: models.Metrics{
			TotalTrades:    2,
			WinRate:        100,
			ProfitFactor:   math.Inf(1),
			TotalReturn:    10,
			InitialBalance: 1000,
			FinalBalance:   1100,
		},
		Model:        models.ModelInfo{Trained: true, Step: 120, Accuracy: 0.625},
		OpenPosition: &models.Position{Side: models.SideShort, Qty: 0.5, Entry: 2000, EntryTime: start},
	}

	out := FormatReport(r)
	assert.Contains(t, out, "ETHUSDT")
	assert.Contains(t, out, "Шагов: 100 | входов: 3 | сделок: 2")
	assert.Contains(t, out, "1000.00 → 1100.00 (+10.00%)")
	assert.Contains(t, out, "Profit factor: ∞")
	assert.Contains(t, out, "SHORT")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "strategy: bollinger")
	assert.Contains(t, out, "Модель: шаг 120, точность 62.50%")

	r.Metrics.ProfitFactor = 2.5
	r.OpenPosition = nil
	r.Model = models.ModelInfo{}
	out = FormatReport(r)
	assert.Contains(t, out, "Модель: не обучена")
	assert.Contains(t, out, "Profit factor: 2.50")
	assert.NotContains(t, out, "Открыта позиция")
}

func TestTelegram_NilSafe(t *testing.T) {
	var tg *Telegram
	assert.NotPanics(t, func() {
		tg.Send("hello")
		tg.Sendf("hello %d", 1)
	})
}
