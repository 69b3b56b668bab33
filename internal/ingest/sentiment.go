package ingest

import (
	"regexp"
	"strings"
)

// positiveWords and negativeWords are the exact lexicon from the original
// vector-ingestion service's _calculate_simple_sentiment.
var positiveWords = map[string]struct{}{
	"win": {}, "won": {}, "victory": {}, "champion": {}, "excellent": {}, "amazing": {},
	"great": {}, "good": {}, "success": {}, "celebrate": {}, "triumph": {}, "outstanding": {},
	"brilliant": {}, "fantastic": {}, "superb": {}, "perfect": {}, "best": {}, "incredible": {},
	"spectacular": {},
}

var negativeWords = map[string]struct{}{
	"lose": {}, "lost": {}, "defeat": {}, "failure": {}, "terrible": {}, "awful": {},
	"bad": {}, "worst": {}, "disaster": {}, "disappointing": {}, "poor": {}, "injured": {},
	"injury": {}, "suspended": {}, "banned": {}, "controversy": {}, "scandal": {}, "crisis": {},
	"problem": {},
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// simpleSentiment scores text in [-1, 1] by counting lexicon hits,
// normalizing by word count and scaling by 10, clamped. Mirrors the
// original's _calculate_simple_sentiment exactly, including its treatment
// of punctuation (stripped, not split into separate tokens) and the
// 0.0 default when no sentiment words are present.
func simpleSentiment(text string) float64 {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return 0
	}

	var positive, negative int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			positive++
		}
		if _, ok := negativeWords[w]; ok {
			negative++
		}
	}
	if positive+negative == 0 {
		return 0
	}

	score := float64(positive-negative) / float64(len(words)) * 10
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
