package service

import (
	"strings"

	"github.com/pkg/errors"

	"backtest_bot/internal/models"
)

// TieBreak решает конфликт, когда одни источники голосуют за лонг, а другие за шорт.
type TieBreak string

const (
	TieBreakLong    TieBreak = "long"
	TieBreakShort   TieBreak = "short"
	TieBreakNeutral TieBreak = "neutral"
)

func ParseTieBreak(raw string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(raw))); tb {
	case "":
		return TieBreakLong, nil
	case TieBreakLong, TieBreakShort, TieBreakNeutral:
		return tb, nil
	default:
		return "", errors.Errorf("unknown tie break %q", raw)
	}
}

const fusedSource = "fused"

// Fuse объединяет сигналы по ИЛИ: если есть лонг, итог лонг, иначе если есть шорт, итог шорт.
// Уверенность берётся максимальная среди источников, проголосовавших за итоговую сторону.
func Fuse(tb TieBreak, signals ...models.Signal) models.Signal {
	var hasLong, hasShort bool
	for _, s := range signals {
		switch s.Side {
		case models.SideLong:
			hasLong = true
		case models.SideShort:
			hasShort = true
		}
	}

	side := models.SideNone
	switch {
	case hasLong && hasShort:
		switch tb {
		case TieBreakShort:
			side = models.SideShort
		case TieBreakNeutral:
			side = models.SideNone
		default:
			side = models.SideLong
		}
	case hasLong:
		side = models.SideLong
	case hasShort:
		side = models.SideShort
	}

	if side == models.SideNone {
		return models.Neutral(fusedSource)
	}

	out := models.Signal{Side: side, Source: fusedSource}
	var voters []string
	for _, s := range signals {
		if s.Side != side {
			continue
		}
		out.Confidence = max(out.Confidence, s.Confidence)
		voters = append(voters, s.Source)
	}
	out.Reason = strings.Join(voters, "+")
	return out
}
