package models

import "time"

// Position: единственная позиция симуляции. Side == SideNone значит "нет позиции".
type Position struct {
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Qty       float64   `json:"qty"`
	Entry     float64   `json:"entry"`
	EntryTime time.Time `json:"entry_time"`
}

func (p Position) IsFlat() bool { return p.Side == SideNone || p.Qty <= 0 }

// Unrealized: нереализованный PnL по цене price.
func (p Position) Unrealized(price float64) float64 {
	if p.IsFlat() {
		return 0
	}
	return p.Side.Sign() * p.Qty * (price - p.Entry)
}

// Notional: стоимость позиции по цене входа.
func (p Position) Notional() float64 { return p.Qty * p.Entry }
