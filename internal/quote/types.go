package quote

// Wire types for the Yahoo-compatible quote provider. Numeric fields arrive
// wrapped in {"raw": n, "fmt": "..."} objects; only raw is decoded.

// HistoryRange is the lookback window accepted by the chart endpoint.
type HistoryRange string

const (
	Range1d  HistoryRange = "1d"
	Range5d  HistoryRange = "5d"
	Range1mo HistoryRange = "1mo"
	Range3mo HistoryRange = "3mo"
	Range6mo HistoryRange = "6mo"
	Range1y  HistoryRange = "1y"
	Range2y  HistoryRange = "2y"
	Range5y  HistoryRange = "5y"
	RangeMax HistoryRange = "max"
)

type rawValue struct {
	Raw float64 `json:"raw"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *apiError       `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	Price struct {
		Symbol                     string   `json:"symbol"`
		ShortName                  string   `json:"shortName"`
		LongName                   string   `json:"longName"`
		RegularMarketPrice         rawValue `json:"regularMarketPrice"`
		RegularMarketPreviousClose rawValue `json:"regularMarketPreviousClose"`
		MarketCap                  rawValue `json:"marketCap"`
	} `json:"price"`
	SummaryProfile struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"summaryProfile"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartQuote struct {
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []int64   `json:"volume"`
}
