package sentiment

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// maxArticles caps how many articles a single analysis considers.
const maxArticles = 50

// Fetcher gathers recent news for a symbol from Alpaca marketdata and
// Google News RSS. Either source may be absent; a source error degrades to
// the remaining ones rather than failing the fetch.
type Fetcher struct {
	alpaca     *marketdata.Client
	httpClient *http.Client
	rssBaseURL string
	log        *slog.Logger
}

// NewFetcher creates a Fetcher. alpaca may be nil when no credentials are
// configured; RSS is always available.
func NewFetcher(alpaca *marketdata.Client) *Fetcher {
	return &Fetcher{
		alpaca:     alpaca,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		rssBaseURL: "https://news.google.com/rss/search",
		log:        slog.Default().With("component", "sentiment"),
	}
}

// Fetch returns up to maxArticles articles in [start, end], newest first,
// deduplicated by headline.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]Article, error) {
	var all []Article

	if f.alpaca != nil {
		articles, err := f.fetchAlpaca(symbol, start, end)
		if err != nil {
			f.log.Warn("alpaca news fetch failed", "symbol", symbol, "err", err)
		} else {
			all = append(all, articles...)
		}
	}

	rss, err := f.fetchGoogleNews(ctx, symbol, start, end)
	if err != nil {
		f.log.Warn("google news fetch failed", "symbol", symbol, "err", err)
	} else {
		all = append(all, rss...)
	}

	if len(all) == 0 && err != nil {
		return nil, fmt.Errorf("fetching news for %s: %w", symbol, err)
	}

	seen := make(map[string]struct{}, len(all))
	deduped := all[:0]
	for _, a := range all {
		key := strings.ToLower(strings.TrimSpace(a.Headline))
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, a)
	}

	sort.Slice(deduped, func(i, j int) bool { return deduped[i].Time.After(deduped[j].Time) })
	if len(deduped) > maxArticles {
		deduped = deduped[:maxArticles]
	}
	return deduped, nil
}

func (f *Fetcher) fetchAlpaca(symbol string, start, end time.Time) ([]Article, error) {
	news, err := f.alpaca.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{symbol},
		Start:      start,
		End:        end,
		TotalLimit: maxArticles,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(news))
	for _, n := range news {
		articles = append(articles, Article{
			Time:     n.CreatedAt,
			Source:   "alpaca",
			Headline: n.Headline,
			Summary:  StripHTML(n.Summary),
		})
	}
	return articles, nil
}

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

func (f *Fetcher) fetchGoogleNews(ctx context.Context, symbol string, start, end time.Time) ([]Article, error) {
	q := url.QueryEscape(symbol + " stock")
	u := f.rssBaseURL + "?q=" + q + "&hl=en-US&gl=US&ceid=US:en"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss status %d", resp.StatusCode)
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}

	var articles []Article
	for _, item := range rss.Channel.Items {
		t, err := time.Parse(time.RFC1123Z, item.PubDate)
		if err != nil {
			t, err = time.Parse(time.RFC1123, item.PubDate)
			if err != nil {
				continue
			}
		}
		if t.Before(start) || t.After(end) {
			continue
		}
		headline := item.Title
		// Google appends " - <publisher>" to titles.
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   "google",
			Headline: headline,
			Summary:  StripHTML(item.Desc),
		})
	}
	return articles, nil
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
