package service

import (
	"math"

	"github.com/pkg/errors"

	"backtest_bot/internal/models"
	ind "backtest_bot/internal/modules/strategy/service"
)

// FeatureNames: порядок колонок матрицы признаков.
var FeatureNames = []string{
	"returns",
	"log_returns",
	"volatility",
	"volume_ma",
	"price_ma",
	"rsi",
	"macd",
	"macd_signal",
	"bb_upper_dist",
	"bb_lower_dist",
	"volume",
	"close",
}

const (
	maPeriod   = 20
	rsiPeriod  = 14
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	bbPeriod   = 20
	bbDev      = 2.0
)

var ErrNoHistory = errors.New("empty history")

// Features строит матрицу признаков: строка на свечу, колонки в порядке FeatureNames.
// Неопределённые значения протягиваются вперёд по колонке, оставшиеся в начале: нули.
func Features(history []models.Candle) ([][]float64, error) {
	n := len(history)
	if n == 0 {
		return nil, ErrNoHistory
	}
	closes := models.Closes(history)
	volumes := models.Volumes(history)

	ret := make([]float64, n)
	logRet := make([]float64, n)
	ret[0], logRet[0] = math.NaN(), math.NaN()
	for i := 1; i < n; i++ {
		ret[i] = closes[i]/closes[i-1] - 1
		logRet[i] = math.Log(closes[i] / closes[i-1])
	}

	volatility := ind.RollingStd(ret, maPeriod, false)
	volumeMA := ind.SMA(volumes, maPeriod)
	priceMA := ind.SMA(closes, maPeriod)
	rsi := ind.RSI(closes, rsiPeriod)
	macd, macdSig := ind.MACD(closes, macdFast, macdSlow, macdSignal)
	upper, _, lower := ind.BollingerSeries(closes, bbPeriod, bbDev)

	upperDist := make([]float64, n)
	lowerDist := make([]float64, n)
	for i := range closes {
		upperDist[i] = (closes[i] - upper[i]) / closes[i]
		lowerDist[i] = (closes[i] - lower[i]) / closes[i]
	}

	cols := [][]float64{
		ret, logRet, volatility, volumeMA, priceMA, rsi,
		macd, macdSig, upperDist, lowerDist, volumes, closes,
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(cols))
	}
	for j, col := range cols {
		last := math.NaN()
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = last
			} else {
				last = v
			}
			if math.IsNaN(v) {
				v = 0
			}
			rows[i][j] = v
		}
	}
	return rows, nil
}

// Labels: 1, если через horizon шагов цена выше текущей, иначе 0.
// Для последних horizon строк метки нет, поэтому длина результата n-horizon.
func Labels(history []models.Candle, horizon int) []int {
	n := len(history) - horizon
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if history[i+horizon].Close/history[i].Close-1 > 0 {
			out[i] = 1
		}
	}
	return out
}
