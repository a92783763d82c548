// Package httpapi serves the stockpulse HTTP API: watchlist quotes, price
// history charts, technical indicators, forecasts, news sentiment, category
// refreshes, universe updates, and user accounts.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"stockpulse/internal/config"
	"stockpulse/internal/domain"
	"stockpulse/internal/forecast"
	"stockpulse/internal/indicator"
	"stockpulse/internal/quote"
	"stockpulse/internal/refresh"
	"stockpulse/internal/sentiment"
	"stockpulse/internal/store"
	"stockpulse/internal/universe"
)

// QuoteService is the provider surface the API needs: spot quotes and
// daily history.
type QuoteService interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	History(ctx context.Context, symbol string, rng quote.HistoryRange) ([]domain.Bar, error)
}

// NewsService fetches recent articles for a symbol.
type NewsService interface {
	Fetch(ctx context.Context, symbol string, start, end time.Time) ([]sentiment.Article, error)
}

// Refresher runs (or resumes) a category dataset refresh.
type Refresher interface {
	Refresh(ctx context.Context, ds refresh.Dataset) ([]domain.StockMetadata, error)
}

// Server is the stockpulse API server.
type Server struct {
	quotes    QuoteService
	refresher Refresher
	datasets  []config.Dataset
	bars      store.BarStore
	users     store.UserStore
	news      NewsService
	watchlist []string
	log       *slog.Logger
}

// NewServer wires the API server. news and users may be nil; their routes
// answer 503 when unconfigured.
func NewServer(
	quotes QuoteService,
	refresher Refresher,
	datasets []config.Dataset,
	bars store.BarStore,
	users store.UserStore,
	news NewsService,
	watchlist []string,
) *Server {
	return &Server{
		quotes:    quotes,
		refresher: refresher,
		datasets:  datasets,
		bars:      bars,
		users:     users,
		news:      news,
		watchlist: watchlist,
		log:       slog.Default().With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stocks", s.handleStocks)
	mux.HandleFunc("GET /api/stock_data/{symbol}", s.handleStockData)
	mux.HandleFunc("GET /api/categories/{dataset}", s.handleCategories)
	mux.HandleFunc("GET /api/ma/{symbol}", s.handleMA)
	mux.HandleFunc("GET /api/bias/{symbol}", s.handleBias)
	mux.HandleFunc("GET /api/predict/{symbol}", s.handlePredict)
	mux.HandleFunc("GET /api/forecast/{symbol}", s.handleForecast)
	mux.HandleFunc("GET /api/sentiment/{symbol}", s.handleSentiment)
	mux.HandleFunc("POST /api/update_symbols/{dataset}", s.handleUpdateSymbols)
	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// marketOf reads the optional ?market= query parameter. TW symbols are
// qualified with the exchange suffix before hitting the provider but keep
// their base ticker everywhere else.
func marketOf(r *http.Request) (domain.Market, error) {
	switch m := r.URL.Query().Get("market"); m {
	case "", "us":
		return domain.MarketUS, nil
	case "tw":
		return domain.MarketTW, nil
	default:
		return "", fmt.Errorf("unknown market %q", m)
	}
}

func qualify(symbol string, market domain.Market) string {
	if market == domain.MarketTW {
		return symbol + ".TW"
	}
	return symbol
}

// history serves daily bars through the Parquet write-through cache: when
// the newest stored bar is from today the store answers, otherwise the
// provider is queried and the result persisted.
func (s *Server) history(ctx context.Context, symbol string, market domain.Market, rng quote.HistoryRange) ([]domain.Bar, error) {
	now := time.Now()
	start := now.Add(-rangeLookback(rng))

	last, err := s.bars.LastTimestamp(ctx, market, symbol)
	if err == nil && !last.IsZero() && last.Format("2006-01-02") == now.Format("2006-01-02") {
		cached, err := s.bars.ReadBars(ctx, market, symbol, start, now)
		if err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	bars, err := s.quotes.History(ctx, qualify(symbol, market), rng)
	if err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].Symbol = symbol
	}
	if err := s.bars.WriteBars(ctx, market, bars); err != nil {
		s.log.Warn("caching history failed", "symbol", symbol, "err", err)
	}
	return bars, nil
}

// rangeLookback maps a chart range to the cache read window.
func rangeLookback(rng quote.HistoryRange) time.Duration {
	days := map[quote.HistoryRange]int{
		quote.Range1d:  2,
		quote.Range5d:  8,
		quote.Range1mo: 32,
		quote.Range3mo: 93,
		quote.Range6mo: 185,
		quote.Range1y:  367,
		quote.Range2y:  732,
		quote.Range5y:  1828,
		quote.RangeMax: 7300,
	}[rng]
	if days == 0 {
		days = 32
	}
	return time.Duration(days) * 24 * time.Hour
}

// handleStocks returns spot quotes for the configured watch symbols.
func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	out := make([]watchQuote, len(s.watchlist))

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(5)
	for i, sym := range s.watchlist {
		g.Go(func() error {
			q, err := s.quotes.Quote(ctx, sym)
			mu.Lock()
			defer mu.Unlock()
			if err != nil || q == nil {
				s.log.Warn("watchlist quote failed", "symbol", sym, "err", err)
				out[i] = watchQuote{Symbol: sym}
				return nil
			}
			price := q.CurrentPrice
			out[i] = watchQuote{
				Symbol: sym,
				Name:   q.Name,
				Price:  &price,
				Change: q.ChangePercent(),
			}
			return nil
		})
	}
	g.Wait()

	writeJSON(w, stocksResponse{Stocks: out})
}

// handleStockData returns the 1-month close chart for a symbol.
func (s *Server) handleStockData(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	market, err := marketOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.history(r.Context(), symbol, market, quote.Range1mo)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "no data found for symbol")
		return
	}

	q, err := s.quotes.Quote(r.Context(), qualify(symbol, market))
	change, current := 0.0, bars[len(bars)-1].Close
	if err == nil && q != nil {
		change = q.ChangePercent()
		if q.CurrentPrice > 0 {
			current = q.CurrentPrice
		}
	}

	dates, _, _, _, closes := barSeries(bars)
	writeJSON(w, stockDataResponse{
		Dates:        dates,
		ClosePrices:  closes,
		Change:       change,
		CurrentPrice: current,
	})
}

// handleCategories runs (or resumes) the category refresh for a dataset and
// returns the enriched, ticker-sorted result.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("dataset")

	var ds *config.Dataset
	for i := range s.datasets {
		if s.datasets[i].Key == key {
			ds = &s.datasets[i]
			break
		}
	}
	if ds == nil {
		writeError(w, http.StatusNotFound, "unknown dataset "+key)
		return
	}

	records, err := universe.LoadCSV(ds.UniverseCSV)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusInternalServerError, "universe for "+key+" is empty")
		return
	}

	data, err := s.refresher.Refresh(r.Context(), refresh.Dataset{
		Key:     ds.Key,
		Symbols: universe.Symbols(records),
		Suffix:  ds.SymbolSuffix,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, data)
}

// handleMA returns the 6-month moving-average chart.
func (s *Server) handleMA(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	market, err := marketOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.history(r.Context(), symbol, market, quote.Range6mo)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "no data found for symbol")
		return
	}

	dates, opens, highs, lows, closes := barSeries(bars)
	macd, macdSignal := indicator.MACD(closes, 12, 26, 9)
	slowK, slowD := indicator.Stoch(highs, lows, closes, 9, 3, 3)
	stochRSIK, stochRSID := indicator.StochRSI(closes, 6, 9, 3)
	fastK, fastD := indicator.StochF(highs, lows, closes, 9, 3)

	writeJSON(w, maResponse{
		Dates:         dates,
		OpenPrices:    opens,
		HighPrices:    highs,
		LowPrices:     lows,
		ClosePrices:   closes,
		SMA5:          indicator.SMA(closes, 5),
		SMA20:         indicator.SMA(closes, 20),
		SMA60:         indicator.SMA(closes, 60),
		EMA5:          indicator.EMA(closes, 5),
		EMA20:         indicator.EMA(closes, 20),
		WMA5:          indicator.WMA(closes, 5),
		WMA20:         indicator.WMA(closes, 20),
		KAMA5:         indicator.KAMA(closes, 10),
		KAMA20:        indicator.KAMA(closes, 10),
		RSI6:          indicator.RSI(closes, 6),
		RSI24:         indicator.RSI(closes, 24),
		MACD:          macd,
		MACDSignal:    macdSignal,
		SlowK:         slowK,
		SlowD:         slowD,
		StochRSIFastK: stochRSIK,
		StochRSIFastD: stochRSID,
		StochFFastK:   fastK,
		StochFFastD:   fastD,
	})
}

// handleBias returns the 6-month deviation-rate chart.
func (s *Server) handleBias(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	market, err := marketOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.history(r.Context(), symbol, market, quote.Range6mo)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "no data found for symbol")
		return
	}

	dates, opens, highs, lows, closes := barSeries(bars)
	bias10 := indicator.BIAS(closes, 10)
	bias20 := indicator.BIAS(closes, 20)

	writeJSON(w, biasResponse{
		Dates:       dates,
		OpenPrices:  opens,
		HighPrices:  highs,
		LowPrices:   lows,
		ClosePrices: closes,
		SMA5:        indicator.SMA(closes, 5),
		SMA10:       indicator.SMA(closes, 10),
		SMA20:       indicator.SMA(closes, 20),
		SMA60:       indicator.SMA(closes, 60),
		BIAS10:      bias10,
		BIAS20:      bias20,
		BIASDiff:    indicator.Sub(bias10, bias20),
	})
}

// handlePredict returns the one-day-ahead linear forecast.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	market, err := marketOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.history(r.Context(), symbol, market, quote.Range1y)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	lin, err := forecast.FitLinear(bars)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, predictResponse{Symbol: symbol, PredictedPrice: lin.PredictedPrice})
}

// handleForecast returns the multi-day sentiment-adjusted forecast. The
// horizon is set by ?days= (default 7, max 30).
func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	market, err := marketOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 || n > 30 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 30")
			return
		}
		days = n
	}

	bars, err := s.history(r.Context(), symbol, market, quote.Range6mo)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	score := 0.0
	if s.news != nil {
		now := time.Now()
		articles, err := s.news.Fetch(r.Context(), symbol, now.AddDate(0, 0, -7), now)
		if err != nil {
			s.log.Warn("news fetch for forecast failed", "symbol", symbol, "err", err)
		} else {
			score = sentiment.Analyze(symbol, articles).Overall
		}
	}

	fc, err := forecast.SentimentAdjusted(bars, score, days)
	if err != nil {
		if errors.Is(err, forecast.ErrNotEnoughData) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, fc)
}

// handleSentiment returns the news sentiment report for a symbol.
func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	if s.news == nil {
		writeError(w, http.StatusServiceUnavailable, "news sources not configured")
		return
	}
	symbol := r.PathValue("symbol")

	now := time.Now()
	articles, err := s.news.Fetch(r.Context(), symbol, now.AddDate(0, 0, -7), now)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, sentiment.Analyze(symbol, articles))
}

// handleUpdateSymbols re-downloads the universe CSV for a dataset.
func (s *Server) handleUpdateSymbols(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("dataset")

	var ds *config.Dataset
	for i := range s.datasets {
		if s.datasets[i].Key == key {
			ds = &s.datasets[i]
			break
		}
	}
	if ds == nil {
		writeError(w, http.StatusNotFound, "unknown dataset "+key)
		return
	}
	if ds.DownloadURL == "" {
		writeError(w, http.StatusServiceUnavailable, "dataset "+key+" has no download source")
		return
	}

	if err := universe.Download(r.Context(), ds.DownloadURL, ds.UniverseCSV); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	records, err := universe.LoadCSV(ds.UniverseCSV)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, updateSymbolsResponse{Status: "success", Dataset: key, Symbols: len(records)})
}

// handleRegister creates a new user account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeError(w, http.StatusServiceUnavailable, "user store not configured")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.users.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// handleLogin verifies a username/password pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeError(w, http.StatusServiceUnavailable, "user store not configured")
		return
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, toUserResponse(u))
}
