package models

import "time"

// Trade: закрытая сделка. После добавления в журнал не меняется.
type Trade struct {
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Qty       float64   `json:"qty"`
	Entry     float64   `json:"entry"`
	Exit      float64   `json:"exit"`
	EntryTime time.Time `json:"entry_time"`
	ExitTime  time.Time `json:"exit_time"`
	PnL       float64   `json:"pnl"`
	ReturnPct float64   `json:"return_pct"`
}

// EquityPoint: одна точка кривой капитала. Первая точка (стартовый баланс) идёт с нулевым временем.
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}
