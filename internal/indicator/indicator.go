// Package indicator computes technical indicators over OHLC series. Every
// function returns one value per input point; points inside the indicator's
// warm-up window are invalid null.Float values so the API marshals them as
// JSON null rather than a misleading zero.
package indicator

import (
	"math"

	"github.com/guregu/null/v6"
)

// Series is an indicator output aligned 1:1 with its input.
type Series []null.Float

// Values converts a raw float series into an all-valid Series.
func Values(vals []float64) Series {
	out := make(Series, len(vals))
	for i, v := range vals {
		out[i] = null.FloatFrom(v)
	}
	return out
}

func nulls(n int) Series {
	return make(Series, n)
}

// SMA is the simple moving average over the trailing period.
func SMA(closes []float64, period int) Series {
	out := nulls(len(closes))
	if period < 1 || len(closes) < period {
		return out
	}
	var sum float64
	for i, v := range closes {
		sum += v
		if i >= period {
			sum -= closes[i-period]
		}
		if i >= period-1 {
			out[i] = null.FloatFrom(sum / float64(period))
		}
	}
	return out
}

// EMA is the exponential moving average, seeded with the SMA of the first
// period values.
func EMA(closes []float64, period int) Series {
	out := nulls(len(closes))
	if period < 1 || len(closes) < period {
		return out
	}
	var seed float64
	for _, v := range closes[:period] {
		seed += v
	}
	prev := seed / float64(period)
	out[period-1] = null.FloatFrom(prev)

	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		prev = (closes[i]-prev)*k + prev
		out[i] = null.FloatFrom(prev)
	}
	return out
}

// WMA is the linearly weighted moving average: the newest point carries
// weight period, the oldest weight 1.
func WMA(closes []float64, period int) Series {
	out := nulls(len(closes))
	if period < 1 || len(closes) < period {
		return out
	}
	denom := float64(period*(period+1)) / 2
	for i := period - 1; i < len(closes); i++ {
		var sum float64
		for j := 0; j < period; j++ {
			sum += closes[i-j] * float64(period-j)
		}
		out[i] = null.FloatFrom(sum / denom)
	}
	return out
}

// KAMA is Kaufman's adaptive moving average over the given efficiency-ratio
// period, with the conventional fast/slow smoothing constants of 2 and 30.
func KAMA(closes []float64, period int) Series {
	out := nulls(len(closes))
	if period < 1 || len(closes) <= period {
		return out
	}

	const (
		fastSC = 2.0 / (2 + 1)
		slowSC = 2.0 / (30 + 1)
	)

	prev := closes[period-1]
	for i := period; i < len(closes); i++ {
		change := math.Abs(closes[i] - closes[i-period])
		var volatility float64
		for j := i - period + 1; j <= i; j++ {
			volatility += math.Abs(closes[j] - closes[j-1])
		}
		er := 0.0
		if volatility != 0 {
			er = change / volatility
		}
		sc := er*(fastSC-slowSC) + slowSC
		sc *= sc

		prev += sc * (closes[i] - prev)
		out[i] = null.FloatFrom(prev)
	}
	return out
}

// RSI is the relative strength index with Wilder smoothing.
func RSI(closes []float64, period int) Series {
	out := nulls(len(closes))
	if period < 1 || len(closes) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = null.FloatFrom(rsiValue(avgGain, avgLoss))

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
		out[i] = null.FloatFrom(rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACD returns the DIF line (fast EMA minus slow EMA) and its signal line
// (an EMA of the DIF over signalPeriod). Both lines share the DIF warm-up,
// and the signal additionally waits for its own period.
func MACD(closes []float64, fast, slow, signalPeriod int) (dif, signal Series) {
	dif = nulls(len(closes))
	signal = nulls(len(closes))
	if len(closes) < slow {
		return dif, signal
	}

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	var difVals []float64
	for i := slow - 1; i < len(closes); i++ {
		v := fastEMA[i].Float64 - slowEMA[i].Float64
		dif[i] = null.FloatFrom(v)
		difVals = append(difVals, v)
	}

	sig := EMA(difVals, signalPeriod)
	for i, v := range sig {
		if v.Valid {
			signal[slow-1+i] = v
		}
	}
	return dif, signal
}

// Stoch is the slow stochastic oscillator: raw %K over fastK periods of
// high/low range, smoothed by an SMA of slowK periods, with %D an SMA of
// slowD periods over the smoothed line.
func Stoch(highs, lows, closes []float64, fastK, slowK, slowD int) (k, d Series) {
	raw := rawStochK(highs, lows, closes, fastK)
	k = smoothValid(raw, slowK)
	d = smoothValid(k, slowD)
	return k, d
}

// StochF is the fast stochastic oscillator: raw %K with %D an SMA over
// fastD periods.
func StochF(highs, lows, closes []float64, fastK, fastD int) (k, d Series) {
	k = rawStochK(highs, lows, closes, fastK)
	d = smoothValid(k, fastD)
	return k, d
}

// StochRSI applies the fast stochastic to an RSI series: %K is the position
// of RSI within its fastK-period range, %D an SMA over fastD periods.
func StochRSI(closes []float64, rsiPeriod, fastK, fastD int) (k, d Series) {
	rsi := RSI(closes, rsiPeriod)
	vals := make([]float64, len(rsi))
	valid := make([]bool, len(rsi))
	for i, v := range rsi {
		vals[i], valid[i] = v.Float64, v.Valid
	}

	k = nulls(len(closes))
	for i := range vals {
		if !valid[i] {
			continue
		}
		lo, hi := vals[i], vals[i]
		ok := true
		for j := i - fastK + 1; j < i; j++ {
			if j < 0 || !valid[j] {
				ok = false
				break
			}
			lo = math.Min(lo, vals[j])
			hi = math.Max(hi, vals[j])
		}
		if !ok || i-fastK+1 < 0 {
			continue
		}
		if hi == lo {
			k[i] = null.FloatFrom(0)
			continue
		}
		k[i] = null.FloatFrom((vals[i] - lo) / (hi - lo) * 100)
	}
	d = smoothValid(k, fastD)
	return k, d
}

// BIAS is the percentage deviation of the close from its period SMA.
func BIAS(closes []float64, period int) Series {
	sma := SMA(closes, period)
	out := nulls(len(closes))
	for i, m := range sma {
		if !m.Valid || m.Float64 == 0 {
			continue
		}
		out[i] = null.FloatFrom((closes[i] - m.Float64) / m.Float64 * 100)
	}
	return out
}

// Sub subtracts b from a pointwise. A point is valid only when both inputs
// are.
func Sub(a, b Series) Series {
	out := nulls(len(a))
	for i := range a {
		if i < len(b) && a[i].Valid && b[i].Valid {
			out[i] = null.FloatFrom(a[i].Float64 - b[i].Float64)
		}
	}
	return out
}

// rawStochK computes the unsmoothed %K over the trailing period.
func rawStochK(highs, lows, closes []float64, period int) Series {
	n := len(closes)
	out := nulls(n)
	if period < 1 || n < period || len(highs) != n || len(lows) != n {
		return out
	}
	for i := period - 1; i < n; i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j < i; j++ {
			hi = math.Max(hi, highs[j])
			lo = math.Min(lo, lows[j])
		}
		if hi == lo {
			out[i] = null.FloatFrom(0)
			continue
		}
		out[i] = null.FloatFrom((closes[i] - lo) / (hi - lo) * 100)
	}
	return out
}

// smoothValid applies an SMA of the given period over the valid run of a
// series, keeping the invalid prefix aligned.
func smoothValid(s Series, period int) Series {
	out := nulls(len(s))
	if period < 1 {
		return out
	}
	count := 0
	var sum float64
	window := make([]float64, 0, period)
	for i, v := range s {
		if !v.Valid {
			continue
		}
		window = append(window, v.Float64)
		sum += v.Float64
		count++
		if count > period {
			sum -= window[0]
			window = window[1:]
		}
		if count >= period {
			out[i] = null.FloatFrom(sum / float64(period))
		}
	}
	return out
}
