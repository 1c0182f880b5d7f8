package models

// Side: направление сигнала или позиции. SideNone означает Neutral для сигнала и Flat для позиции.
type Side string

const (
	SideNone  Side = ""
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Sign: +1 для лонга, -1 для шорта, 0 для пустой стороны.
func (s Side) Sign() float64 {
	switch s {
	case SideLong:
		return 1
	case SideShort:
		return -1
	default:
		return 0
	}
}

// Opposite возвращает противоположную сторону. Для SideNone: SideNone.
func (s Side) Opposite() Side {
	switch s {
	case SideLong:
		return SideShort
	case SideShort:
		return SideLong
	default:
		return SideNone
	}
}

func (s Side) String() string {
	if s == SideNone {
		return "NONE"
	}
	return string(s)
}

// Signal: ответ одного источника сигналов на текущем шаге.
// Confidence в [0,1], для SideNone обычно 0.
type Signal struct {
	Side       Side
	Confidence float64
	Source     string
	Reason     string
}

// Neutral: пустой сигнал с нулевой уверенностью.
func Neutral(source string) Signal {
	return Signal{Side: SideNone, Source: source}
}
