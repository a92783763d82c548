package sentiment

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestScoreTextPolarity(t *testing.T) {
	pos := ScoreText("Shares surge after earnings beat, strong growth ahead")
	if pos <= 0 {
		t.Errorf("positive headline scored %v", pos)
	}

	neg := ScoreText("Stock plunges on bankruptcy fears and fraud investigation")
	if neg >= 0 {
		t.Errorf("negative headline scored %v", neg)
	}

	if neutral := ScoreText("Company schedules annual shareholder meeting"); neutral != 0 {
		t.Errorf("neutral headline scored %v", neutral)
	}
	if empty := ScoreText(""); empty != 0 {
		t.Errorf("empty text scored %v", empty)
	}
}

func TestScoreTextBounded(t *testing.T) {
	extreme := ScoreText("surge surge surge rally rally soar soar beats record breakout")
	if extreme <= 0 || extreme > 1 {
		t.Errorf("score %v out of (0, 1]", extreme)
	}
	crash := ScoreText("crash crash bankruptcy fraud default selloff plunge recession crisis")
	if crash >= 0 || crash < -1 {
		t.Errorf("score %v out of [-1, 0)", crash)
	}
}

func TestScoreTextNegation(t *testing.T) {
	plain := ScoreText("earnings beat expectations")
	negated := ScoreText("earnings not beat expectations")
	if plain <= 0 || negated >= 0 {
		t.Errorf("negation did not flip: plain=%v negated=%v", plain, negated)
	}
}

func TestScoreTextBooster(t *testing.T) {
	plain := ScoreText("markets weak today")
	boosted := ScoreText("markets extremely weak today")
	if boosted >= plain {
		t.Errorf("booster did not amplify: plain=%v boosted=%v", plain, boosted)
	}
}

func TestScoreArticleWeighting(t *testing.T) {
	headlineOnly := ScoreArticle(Article{Headline: "shares rally"})
	withSummary := ScoreArticle(Article{Headline: "shares rally", Summary: "analysts see further gains"})
	if headlineOnly <= 0 {
		t.Fatalf("headline score = %v", headlineOnly)
	}
	if withSummary <= headlineOnly {
		t.Errorf("positive summary should raise the score: %v vs %v", withSummary, headlineOnly)
	}

	want := headlineWeight * ScoreText("shares rally")
	if math.Abs(headlineOnly-want) > 1e-12 {
		t.Errorf("headline-only = %v, want %v", headlineOnly, want)
	}
}

func TestLabelBands(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{0.3, LabelPositive},
		{0.05, LabelPositive},
		{0.049, LabelNeutral},
		{0, LabelNeutral},
		{-0.049, LabelNeutral},
		{-0.05, LabelNegative},
		{-0.7, LabelNegative},
	}
	for _, c := range cases {
		if got := Label(c.score); got != c.want {
			t.Errorf("Label(%v) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestAnalyze(t *testing.T) {
	articles := []Article{
		{Headline: "shares surge on record profit", Source: "google"},
		{Headline: "rally continues as growth beats forecasts", Source: "alpaca"},
		{Headline: "minor decline in afternoon trading", Source: "google"},
	}

	rep := Analyze("AAPL", articles)
	if rep.Symbol != "AAPL" || rep.NewsCount != 3 || len(rep.Articles) != 3 {
		t.Fatalf("report = %+v", rep)
	}
	if rep.Overall <= 0 || rep.Label != LabelPositive {
		t.Errorf("overall = %v (%s), want positive", rep.Overall, rep.Label)
	}
	if rep.Articles[2].Label != LabelNegative {
		t.Errorf("decline article label = %s", rep.Articles[2].Label)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	rep := Analyze("AAPL", nil)
	if rep.NewsCount != 0 || rep.Overall != 0 || rep.Label != LabelNeutral {
		t.Errorf("empty report = %+v", rep)
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML(`<a href="x">Shares &amp; bonds</a> <b>rally</b>`)
	if got != "Shares & bonds rally" {
		t.Errorf("StripHTML = %q", got)
	}
}

func TestFetchGoogleNews(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	pub := now.Add(-2 * time.Hour).Format(time.RFC1123Z)
	old := now.Add(-100 * 24 * time.Hour).Format(time.RFC1123Z)

	feed := fmt.Sprintf(`<?xml version="1.0"?>
<rss><channel>
  <item><title>AAPL shares rally - Reuters</title><pubDate>%s</pubDate><description>&lt;b&gt;gains&lt;/b&gt; continue</description></item>
  <item><title>Old story - AP</title><pubDate>%s</pubDate><description>stale</description></item>
  <item><title>Broken date</title><pubDate>yesterday</pubDate><description>skip</description></item>
</channel></rss>`, pub, old)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			t.Error("missing query parameter")
		}
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	f.rssBaseURL = srv.URL

	articles, err := f.Fetch(context.Background(), "AAPL", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1 (window + parse filtering): %+v", len(articles), articles)
	}
	a := articles[0]
	if a.Headline != "AAPL shares rally" {
		t.Errorf("publisher suffix not stripped: %q", a.Headline)
	}
	if a.Summary != "gains continue" {
		t.Errorf("summary = %q", a.Summary)
	}
	if a.Source != "google" {
		t.Errorf("source = %q", a.Source)
	}
}

func TestFetchDeduplicates(t *testing.T) {
	now := time.Now().UTC()
	pub := now.Add(-time.Hour).Format(time.RFC1123Z)
	feed := fmt.Sprintf(`<?xml version="1.0"?>
<rss><channel>
  <item><title>Same headline - A</title><pubDate>%s</pubDate></item>
  <item><title>Same headline - B</title><pubDate>%s</pubDate></item>
</channel></rss>`, pub, pub)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewFetcher(nil)
	f.rssBaseURL = srv.URL

	articles, err := f.Fetch(context.Background(), "AAPL", now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Errorf("got %d articles, want deduplication to 1", len(articles))
	}
}
