// Package classifier implements the deterministic, pattern-based query
// classifier (C2) that the response cache and orchestrator use to decide
// cacheability and retention. Grounded on the original Python
// QueryClassifier (original_source/src/db/services/llm_service.py),
// re-expressed as process-wide immutable regexp.Regexp tables built once
// at package init, matching the teacher's convention of compiling lexicon
// patterns at package scope rather than per call.
package classifier

import "regexp"

// Category is the cacheability/retention label produced by Classify.
type Category string

const (
	CategoryFactual Category = "factual"
	CategoryNews    Category = "news"
	CategoryOpinion Category = "opinion"
	CategoryNoCache Category = "no_cache"
)

var factualPatterns = compileAll(
	`\b(stats?|statistics?|record|career|age|nationality|position|height|weight)\b`,
	`\b(goals?|assists?|appearances?|minutes?|cards?|saves?)\b`,
	`\b(born|birth|club|team|league|transfer|contract)\b`,
	`\b(when|where|how many|what position|which team)\b`,
)

var newsPatterns = compileAll(
	`\b(news|latest|recent|today|yesterday|this week|update)\b`,
	`\b(injury|injured|transfer|signed|rumor|report)\b`,
	`\b(match|game|fixture|result|score|win|loss|draw)\b`,
	`\b(happening|occurred|announced|confirmed)\b`,
)

var opinionPatterns = compileAll(
	`\b(think|opinion|believe|feel|rate|rank|compare)\b`,
	`\b(best|worst|better|worse|underrated|overrated)\b`,
	`\b(should|would|could|might|analysis|tactical)\b`,
	`\b(prediction|forecast|expect|likely|probably)\b`,
)

var personalisedPatterns = compileAll(
	`\b(my team|my squad|recommend|suggest|advice)\b`,
	`\b(should I|help me|what do you think I)\b`,
	`\b(for me|in my|my budget|my league)\b`,
	`\bfpl.*(recommend|suggest|advice|team|squad)\b`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func countMatches(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}

// Classify labels a message deterministically and without side effects. A
// personalised match always wins as no_cache. Otherwise the remaining three
// groups are scored by match count and the highest wins, with ties broken
// factual > news > opinion; an all-zero score defaults to opinion.
func Classify(message string) Category {
	for _, re := range personalisedPatterns {
		if re.MatchString(message) {
			return CategoryNoCache
		}
	}

	factual := countMatches(factualPatterns, message)
	news := countMatches(newsPatterns, message)
	opinion := countMatches(opinionPatterns, message)

	max := factual
	if news > max {
		max = news
	}
	if opinion > max {
		max = opinion
	}

	switch {
	case max == 0:
		return CategoryOpinion
	case factual == max:
		return CategoryFactual
	case news == max:
		return CategoryNews
	default:
		return CategoryOpinion
	}
}
