package httpapi

import (
	"time"

	"stockpulse/internal/domain"
	"stockpulse/internal/indicator"
)

// watchQuote is one entry of the watchlist snapshot. Price is nil when the
// provider had no data for the symbol.
type watchQuote struct {
	Symbol string   `json:"symbol"`
	Name   string   `json:"name,omitempty"`
	Price  *float64 `json:"price"`
	Change float64  `json:"change"`
}

type stocksResponse struct {
	Stocks []watchQuote `json:"stocks"`
}

// stockDataResponse is the 1-month close chart.
type stockDataResponse struct {
	Dates        []string  `json:"dates"`
	ClosePrices  []float64 `json:"close_prices"`
	Change       float64   `json:"change"`
	CurrentPrice float64   `json:"current_price"`
}

// maResponse is the moving-average chart payload. Warm-up points are JSON
// null.
type maResponse struct {
	Dates         []string         `json:"dates"`
	OpenPrices    []float64        `json:"open_prices"`
	HighPrices    []float64        `json:"high_prices"`
	LowPrices     []float64        `json:"low_prices"`
	ClosePrices   []float64        `json:"close_prices"`
	SMA5          indicator.Series `json:"sma_5"`
	SMA20         indicator.Series `json:"sma_20"`
	SMA60         indicator.Series `json:"sma_60"`
	EMA5          indicator.Series `json:"ema_5"`
	EMA20         indicator.Series `json:"ema_20"`
	WMA5          indicator.Series `json:"wma_5"`
	WMA20         indicator.Series `json:"wma_20"`
	KAMA5         indicator.Series `json:"kama_5"`
	KAMA20        indicator.Series `json:"kama_20"`
	RSI6          indicator.Series `json:"rsi_6"`
	RSI24         indicator.Series `json:"rsi_24"`
	MACD          indicator.Series `json:"macd"`
	MACDSignal    indicator.Series `json:"macd_signal"`
	SlowK         indicator.Series `json:"slowk"`
	SlowD         indicator.Series `json:"slowd"`
	StochRSIFastK indicator.Series `json:"stochrsi_fastk"`
	StochRSIFastD indicator.Series `json:"stochrsi_fastd"`
	StochFFastK   indicator.Series `json:"stochf_fastk"`
	StochFFastD   indicator.Series `json:"stochf_fastd"`
}

// biasResponse is the deviation-rate chart payload.
type biasResponse struct {
	Dates       []string         `json:"dates"`
	OpenPrices  []float64        `json:"open_prices"`
	HighPrices  []float64        `json:"high_prices"`
	LowPrices   []float64        `json:"low_prices"`
	ClosePrices []float64        `json:"close_prices"`
	SMA5        indicator.Series `json:"sma_5"`
	SMA10       indicator.Series `json:"sma_10"`
	SMA20       indicator.Series `json:"sma_20"`
	SMA60       indicator.Series `json:"sma_60"`
	BIAS10      indicator.Series `json:"bias_10"`
	BIAS20      indicator.Series `json:"bias_20"`
	BIASDiff    indicator.Series `json:"bias_diff"`
}

type predictResponse struct {
	Symbol         string  `json:"symbol"`
	PredictedPrice float64 `json:"predicted_price"`
}

type updateSymbolsResponse struct {
	Status  string `json:"status"`
	Dataset string `json:"dataset"`
	Symbols int    `json:"symbols"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}

// barSeries splits bars into the parallel arrays the chart payloads use.
func barSeries(bars []domain.Bar) (dates []string, opens, highs, lows, closes []float64) {
	dates = make([]string, len(bars))
	opens = make([]float64, len(bars))
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		dates[i] = b.Timestamp.Format("2006-01-02")
		opens[i] = b.Open
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return dates, opens, highs, lows, closes
}
