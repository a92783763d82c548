// Package sentiment scores market news with a finance-weighted lexicon and
// aggregates the per-article scores into a symbol-level report.
package sentiment

import (
	"math"
	"regexp"
	"strings"
	"time"
)

// Labels for the compound score bands. The thresholds mirror the usual
// VADER convention of ±0.05.
const (
	LabelPositive = "positive"
	LabelNegative = "negative"
	LabelNeutral  = "neutral"

	labelThreshold = 0.05
)

// normAlpha dampens the normalized score so a single strong term does not
// saturate it.
const normAlpha = 15.0

// Weights for combining headline and summary scores per article.
const (
	headlineWeight = 0.7
	summaryWeight  = 0.3
)

// Article is one news item to score.
type Article struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary,omitempty"`
}

// ScoredArticle is an article with its compound sentiment.
type ScoredArticle struct {
	Article
	Score float64 `json:"sentiment_score"`
	Label string  `json:"sentiment"`
}

// Report is the symbol-level aggregate.
type Report struct {
	Symbol    string          `json:"symbol"`
	NewsCount int             `json:"news_count"`
	Overall   float64         `json:"overall_sentiment"`
	Label     string          `json:"sentiment"`
	Articles  []ScoredArticle `json:"news"`
}

var tokenRe = regexp.MustCompile(`[a-z']+`)

// ScoreText returns the normalized sentiment of a text in [-1, 1]. Negators
// flip the following term, boosters scale it.
func ScoreText(text string) float64 {
	tokens := tokenRe.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return 0
	}

	var sum float64
	for i, tok := range tokens {
		v, ok := lexicon[tok]
		if !ok {
			continue
		}
		if i > 0 {
			prev := tokens[i-1]
			if _, neg := negators[prev]; neg {
				v = -v
			} else if boost, ok := boosters[prev]; ok {
				v *= boost
			}
		}
		sum += v
	}
	if sum == 0 {
		return 0
	}
	return sum / math.Sqrt(sum*sum+normAlpha)
}

// ScoreArticle combines the headline and summary scores, weighting the
// headline more heavily. An empty summary contributes zero.
func ScoreArticle(a Article) float64 {
	score := headlineWeight * ScoreText(a.Headline)
	if a.Summary != "" {
		score += summaryWeight * ScoreText(a.Summary)
	}
	return score
}

// Label maps a compound score to its band.
func Label(score float64) string {
	switch {
	case score >= labelThreshold:
		return LabelPositive
	case score <= -labelThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Analyze scores each article and aggregates them into a report. No articles
// yields a neutral report.
func Analyze(symbol string, articles []Article) *Report {
	scored := make([]ScoredArticle, 0, len(articles))
	var sum float64
	for _, a := range articles {
		s := ScoreArticle(a)
		sum += s
		scored = append(scored, ScoredArticle{
			Article: a,
			Score:   s,
			Label:   Label(s),
		})
	}

	overall := 0.0
	if len(scored) > 0 {
		overall = sum / float64(len(scored))
	}
	return &Report{
		Symbol:    symbol,
		NewsCount: len(scored),
		Overall:   overall,
		Label:     Label(overall),
		Articles:  scored,
	}
}
