// Package domain defines the core data types shared across stockpulse:
// markets, bars, quotes, enriched stock metadata, and user accounts.
package domain

import (
	"math"
	"time"
)

// Market identifies which exchange universe a symbol belongs to.
type Market string

const (
	MarketUS Market = "us"
	MarketTW Market = "tw"
)

// Bar is a single OHLCV bar.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// SymbolRecord is one row of the input symbol universe. Extra columns from
// the exchange CSV are carried along for category grouping but are not used
// by the refresh pipeline itself.
type SymbolRecord struct {
	Symbol   string
	Name     string
	Industry string
}

// StockMetadata is the enriched unit produced per symbol by the category
// refresh pipeline. AsOfDate is the calendar date the fetch succeeded.
type StockMetadata struct {
	Ticker        string  `json:"ticker"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     float64 `json:"marketCap"`
	ChangePercent float64 `json:"change"`
	CurrentPrice  float64 `json:"current_price"`
	AsOfDate      string  `json:"date"`
}

// Quote is a point-in-time snapshot from the upstream quote provider.
type Quote struct {
	Symbol        string
	Name          string
	Sector        string
	Industry      string
	MarketCap     float64
	CurrentPrice  float64
	PreviousClose float64
}

// ChangePercent returns the percentage move from the previous close,
// rounded to two decimals. Zero previous close yields zero.
func (q Quote) ChangePercent() float64 {
	if q.PreviousClose == 0 {
		return 0
	}
	pct := (q.CurrentPrice - q.PreviousClose) / q.PreviousClose * 100
	return math.Round(pct*100) / 100
}

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}
