// Package forecast produces price forecasts from daily bar history: a plain
// ordinary-least-squares one-day-ahead forecast, and a multi-day forecast
// that blends the linear trend with a recency-weighted price level and a
// news sentiment tilt.
package forecast

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"stockpulse/internal/domain"
)

// ErrNotEnoughData is returned when the history is too short to fit.
var ErrNotEnoughData = errors.New("not enough history to forecast")

const minPoints = 10

// Linear is a one-day-ahead close forecast from an OLS regression of close
// on calendar day ordinal.
type Linear struct {
	PredictedPrice float64 `json:"predicted_price"`
	Slope          float64 `json:"slope"`
	Intercept      float64 `json:"intercept"`
	R2             float64 `json:"r2"`
}

// Point is one forecast step.
type Point struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// Forecast is a multi-day sentiment-adjusted projection with backtest
// metrics computed over a held-out tail of the history.
type Forecast struct {
	Predictions      []Point `json:"predictions"`
	PredictedNextDay float64 `json:"predicted_next_day"`
	SentimentScore   float64 `json:"sentiment_score"`
	MAE              float64 `json:"mae"`
	RMSE             float64 `json:"rmse"`
	Accuracy         float64 `json:"prediction_accuracy"`
}

// dayOrdinal maps a timestamp to whole days since the Unix epoch, the
// regression's x axis.
func dayOrdinal(t time.Time) float64 {
	return float64(t.Unix() / 86400)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FitLinear regresses close on day ordinal and projects one day past the
// last bar.
func FitLinear(bars []domain.Bar) (*Linear, error) {
	if len(bars) < 2 {
		return nil, ErrNotEnoughData
	}

	xs := make([]float64, len(bars))
	ys := make([]float64, len(bars))
	for i, b := range bars {
		xs[i] = dayOrdinal(b.Timestamp)
		ys[i] = b.Close
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	next := xs[len(xs)-1] + 1

	return &Linear{
		PredictedPrice: round2(alpha + beta*next),
		Slope:          beta,
		Intercept:      alpha,
		R2:             stat.RSquared(xs, ys, nil, alpha, beta),
	}, nil
}

// model is the closed-form forecaster shared by the projection and its
// backtest: an EWMA price level plus the OLS slope, tilted per-step by the
// sentiment score.
type model struct {
	level     float64
	slope     float64
	sentiment float64
}

// ewmaSpan controls how quickly the level forgets old closes.
const ewmaSpan = 10

// sentimentWeight scales a full-strength score into a per-step drift
// fraction of the price level.
const sentimentWeight = 0.005

func fitModel(bars []domain.Bar, sentiment float64) model {
	xs := make([]float64, len(bars))
	ys := make([]float64, len(bars))
	for i, b := range bars {
		xs[i] = dayOrdinal(b.Timestamp)
		ys[i] = b.Close
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)

	k := 2.0 / float64(ewmaSpan+1)
	level := ys[0]
	for _, y := range ys[1:] {
		level = (y-level)*k + level
	}

	return model{
		level:     level,
		slope:     beta,
		sentiment: math.Max(-1, math.Min(1, sentiment)),
	}
}

// predict returns the price steps days past the fitted history.
func (m model) predict(steps int) float64 {
	drift := m.slope + m.sentiment*sentimentWeight*m.level
	return m.level + drift*float64(steps)
}

// SentimentAdjusted projects horizon daily closes past the last bar and
// backtests the same model on a held-out tail (the last fifth of the
// history, at least one point). Accuracy follows the usual RMSE-relative
// form: 100 minus the RMSE as a percentage of the last close, floored at 0.
func SentimentAdjusted(bars []domain.Bar, sentiment float64, horizon int) (*Forecast, error) {
	if len(bars) < minPoints {
		return nil, ErrNotEnoughData
	}
	if horizon < 1 {
		horizon = 1
	}

	full := fitModel(bars, sentiment)
	last := bars[len(bars)-1]

	preds := make([]Point, horizon)
	for h := 1; h <= horizon; h++ {
		preds[h-1] = Point{
			Date:  last.Timestamp.AddDate(0, 0, h).Format("2006-01-02"),
			Price: round2(full.predict(h)),
		}
	}

	// Backtest: fit on the head, score on the tail.
	holdout := len(bars) / 5
	if holdout < 1 {
		holdout = 1
	}
	head := bars[:len(bars)-holdout]
	tail := bars[len(bars)-holdout:]
	bt := fitModel(head, sentiment)

	var absSum, sqSum float64
	for i, b := range tail {
		diff := bt.predict(i+1) - b.Close
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}
	mae := absSum / float64(len(tail))
	rmse := math.Sqrt(sqSum / float64(len(tail)))

	accuracy := 0.0
	if last.Close > 0 {
		accuracy = math.Max(0, 100-math.Min(100, rmse/last.Close*100))
	}

	return &Forecast{
		Predictions:      preds,
		PredictedNextDay: preds[0].Price,
		SentimentScore:   full.sentiment,
		MAE:              round2(mae),
		RMSE:             round2(rmse),
		Accuracy:         round2(accuracy),
	}, nil
}
