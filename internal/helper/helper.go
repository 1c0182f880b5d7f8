package helper

import (
	"math"
	"strings"
	"time"
)

func NormTF(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "candle")
	switch s {
	case "60m", "1h":
		return "1h"
	case "1440m", "24h", "1d":
		return "1d"
	default:
		return s
	}
}

// TFDuration переводит таймфрейм ("1m", "5m", "1h", "1d") в длительность.
// Неизвестный таймфрейм: 0.
func TFDuration(raw string) time.Duration {
	tf := NormTF(raw)
	if tf == "1d" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(tf)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// DayStart: полночь UTC календарного дня t.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDay(a, b time.Time) bool { return DayStart(a).Equal(DayStart(b)) }

func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Finite: true, если все значения не NaN и не Inf.
func Finite(xs ...float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
