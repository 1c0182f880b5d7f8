package service

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Все индикаторы работают по серии целиком и возвращают серию той же длины.
// Там, где значение ещё не определено (не хватает истории), стоит NaN.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// SMA: простое скользящее среднее за n точек.
func SMA(xs []float64, n int) []float64 {
	out := nanSeries(len(xs))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(xs); i++ {
		w := xs[i-n+1 : i+1]
		if hasNaN(w) {
			continue
		}
		out[i] = stat.Mean(w, nil)
	}
	return out
}

// RollingStd: скользящее стандартное отклонение. population=true: делитель n (ddof=0),
// иначе n-1.
func RollingStd(xs []float64, n int, population bool) []float64 {
	out := nanSeries(len(xs))
	if n <= 0 || (!population && n < 2) {
		return out
	}
	for i := n - 1; i < len(xs); i++ {
		w := xs[i-n+1 : i+1]
		if hasNaN(w) {
			continue
		}
		if population {
			out[i] = stat.PopStdDev(w, nil)
		} else {
			out[i] = stat.StdDev(w, nil)
		}
	}
	return out
}

// EMA: экспонента с затравкой первым значением; определена после n непустых точек.
// NaN на входе пропускаются.
func EMA(xs []float64, n int) []float64 {
	return smooth(xs, newEMA(n))
}

func smooth(xs []float64, e emaState) []float64 {
	out := nanSeries(len(xs))
	for i, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		e.Update(v)
		if e.Ready() {
			out[i] = e.Value()
		}
	}
	return out
}

// RSI по Уайлдеру. Первое изменение считается нулевым, поэтому значение появляется с индекса n-1.
func RSI(closes []float64, n int) []float64 {
	out := nanSeries(len(closes))
	if len(closes) == 0 || n <= 0 {
		return out
	}
	up := make([]float64, len(closes))
	down := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			up[i] = d
		} else {
			down[i] = -d
		}
	}
	avgUp := smooth(up, newWilder(n))
	avgDown := smooth(down, newWilder(n))
	for i := range closes {
		if math.IsNaN(avgUp[i]) || math.IsNaN(avgDown[i]) {
			continue
		}
		if avgDown[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgUp[i] / avgDown[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// MACD возвращает линию MACD (EMA fast - EMA slow) и её сигнальную линию.
func MACD(closes []float64, fast, slow, signal int) (line, sig []float64) {
	ef := EMA(closes, fast)
	es := EMA(closes, slow)
	line = nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(ef[i]) || math.IsNaN(es[i]) {
			continue
		}
		line[i] = ef[i] - es[i]
	}
	return line, EMA(line, signal)
}

// BollingerSeries: средняя и полосы mean ± k*std (std с делителем n).
func BollingerSeries(closes []float64, n int, k float64) (upper, middle, lower []float64) {
	middle = SMA(closes, n)
	std := RollingStd(closes, n, true)
	upper = nanSeries(len(closes))
	lower = nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(middle[i]) || math.IsNaN(std[i]) {
			continue
		}
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}
	return upper, middle, lower
}
