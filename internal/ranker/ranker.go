// Package ranker implements the hybrid relevance re-scorer (C8): candidate
// documents from semantic search are re-scored with temporal,
// source-credibility, lexical, quality, and sentiment signals and
// truncated to a final top-k. Grounded on the original EnhancedSearchService
// (original_source/src/db/services/enhanced_search_service.py) and its
// SearchConfig weight tables, re-expressed in the teacher's sefii/rerank.go
// style (plain structs, sort.Slice-based reordering, small single-purpose
// scoring helpers).
package ranker

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jamesfry/footballgpt/internal/config"
)

// Strategy selects which weighted combination of signals produces the
// final score.
type Strategy string

const (
	StrategySemantic   Strategy = "semantic"
	StrategyTemporal   Strategy = "temporal"
	StrategyEngagement Strategy = "engagement"
	StrategyHybrid     Strategy = "hybrid"
)

// Candidate is a single document produced by upstream semantic search,
// augmented in place by Rank with a final score and breakdown.
type Candidate struct {
	ArticleID      int64
	Title          string
	Content        string
	Source         string
	URL            string
	PublishedAt    *time.Time
	SentimentScore *float64
	Semantic       float64 // similarity score from vector search, [0,1]

	FinalScore     float64
	ScoreBreakdown map[string]float64
}

var sourceCredibility = map[string]float64{
	"BBC Sport":              1.0,
	"Sky Sports":             0.95,
	"Guardian":               0.95,
	"Telegraph":              0.9,
	"Fantasy Football Scout": 0.85,
	"ESPN":                   0.8,
}

const defaultSourceCredibility = 0.7

var clickbaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+\s+(things|ways|reasons|facts)`),
	regexp.MustCompile(`(?i)you won't believe`),
	regexp.MustCompile(`(?i)shocking`),
	regexp.MustCompile(`(?i)amazing`),
	regexp.MustCompile(`(?i)incredible`),
}

const clickbaitPenalty = 0.7

// Ranker scores and re-orders candidates using the configured weights.
type Ranker struct {
	weights config.RankerWeights
}

// New constructs a Ranker from cfg. The hybrid strategy takes its signal
// weights and decay lambda from cfg; the temporal strategy takes only its
// decay lambda from cfg. The signal weights of the temporal and engagement
// strategies are fixed constants in Rank and are not read from cfg.
func New(cfg config.RankerWeights) *Ranker {
	return &Ranker{weights: cfg}
}

func sourceScore(source string) float64 {
	if s, ok := sourceCredibility[source]; ok {
		return s
	}
	return defaultSourceCredibility
}

func temporalScore(publishedAt *time.Time, lambda float64) float64 {
	if publishedAt == nil {
		return 0.5
	}
	days := time.Since(*publishedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-lambda * days)
}

func textRelevanceScore(query string, title, content string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	titleLower := strings.ToLower(title)
	contentLower := strings.ToLower(content)

	titleHits := 0
	contentHits := 0
	for _, term := range terms {
		if strings.Contains(titleLower, term) {
			titleHits++
		}
		if strings.Contains(contentLower, term) {
			contentHits++
		}
	}
	n := float64(len(terms))
	boost := 2.0*(float64(titleHits)/n) + float64(contentHits)/n
	return math.Min(boost, 1.0)
}

func contentQualityScore(title, content string) float64 {
	contentLen := len(content)
	const minLen, maxLen = 500, 2000

	var lengthScore float64
	switch {
	case contentLen >= minLen && contentLen <= maxLen:
		lengthScore = 1.0
	case contentLen < minLen:
		if minLen == 0 {
			lengthScore = 1.0
		} else {
			lengthScore = float64(contentLen) / float64(minLen)
		}
	default:
		lengthScore = math.Max(0.5, float64(maxLen)/float64(contentLen))
	}

	titleLen := len(title)
	titleScore := 1.0
	if titleLen < 20 || titleLen > 150 {
		titleScore = 0.8
	}
	for _, re := range clickbaitPatterns {
		if re.MatchString(title) {
			titleScore *= clickbaitPenalty
			break
		}
	}

	return (lengthScore + titleScore) / 2.0
}

func sentimentScore(s *float64) float64 {
	if s == nil {
		return 0.5
	}
	if *s >= 0 {
		return 0.5 + *s*0.3
	}
	return 0.5 + *s*0.2
}

// Rank scores candidates against query under strategy, returning them
// sorted descending by final score and truncated to finalK. Ties break by
// source credibility descending, then published date descending, then
// stable input order.
func (r *Ranker) Rank(query string, candidates []Candidate, strategy Strategy, finalK int) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		c := &out[i]
		breakdown := map[string]float64{"semantic": c.Semantic}

		switch strategy {
		case StrategyTemporal:
			temp := temporalScore(c.PublishedAt, r.weights.LambdaTemp)
			text := textRelevanceScore(query, c.Title, c.Content)
			breakdown["temporal"] = temp
			breakdown["text_relevance"] = text
			c.FinalScore = c.Semantic*0.6 + temp*0.3 + text*0.1

		case StrategyEngagement:
			src := sourceScore(c.Source)
			quality := contentQualityScore(c.Title, c.Content)
			text := textRelevanceScore(query, c.Title, c.Content)
			sent := sentimentScore(c.SentimentScore)
			breakdown["source_credibility"] = src
			breakdown["content_quality"] = quality
			breakdown["text_relevance"] = text
			breakdown["sentiment"] = sent
			c.FinalScore = c.Semantic*0.5 + src*0.2 + quality*0.15 + text*0.1 + sent*0.05

		case StrategyHybrid:
			temp := temporalScore(c.PublishedAt, r.weights.LambdaHyb)
			src := sourceScore(c.Source)
			text := textRelevanceScore(query, c.Title, c.Content)
			quality := contentQualityScore(c.Title, c.Content)
			sent := sentimentScore(c.SentimentScore)
			breakdown["temporal"] = temp
			breakdown["source_credibility"] = src
			breakdown["text_relevance"] = text
			breakdown["content_quality"] = quality
			breakdown["sentiment"] = sent
			c.FinalScore = c.Semantic*r.weights.Semantic +
				temp*r.weights.Temporal +
				src*r.weights.Source +
				text*r.weights.Text +
				quality*r.weights.Quality +
				sent*r.weights.Sentiment

		default: // StrategySemantic
			c.FinalScore = c.Semantic
		}

		breakdown["total"] = c.FinalScore
		c.ScoreBreakdown = breakdown
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		si, sj := sourceScore(out[i].Source), sourceScore(out[j].Source)
		if si != sj {
			return si > sj
		}
		pi, pj := out[i].PublishedAt, out[j].PublishedAt
		switch {
		case pi != nil && pj != nil && !pi.Equal(*pj):
			return pi.After(*pj)
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		default:
			return false
		}
	})

	if finalK > 0 && finalK < len(out) {
		out = out[:finalK]
	}
	return out
}
