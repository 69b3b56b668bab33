package ingest

import "testing"

func TestSimpleSentimentPositive(t *testing.T) {
	got := simpleSentiment("What a brilliant victory, an amazing triumph for the champions")
	if got <= 0 {
		t.Fatalf("expected positive sentiment, got %f", got)
	}
}

func TestSimpleSentimentNegative(t *testing.T) {
	got := simpleSentiment("A terrible defeat, the worst disaster of the season, crisis looms")
	if got >= 0 {
		t.Fatalf("expected negative sentiment, got %f", got)
	}
}

func TestSimpleSentimentNeutralWhenNoLexiconWords(t *testing.T) {
	got := simpleSentiment("The match kicks off at three o'clock on Saturday")
	if got != 0 {
		t.Fatalf("expected neutral 0, got %f", got)
	}
}

func TestSimpleSentimentEmptyText(t *testing.T) {
	if got := simpleSentiment(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %f", got)
	}
}

func TestSimpleSentimentClampsToUnitRange(t *testing.T) {
	got := simpleSentiment("win win win win win win win win win win")
	if got != 1 {
		t.Fatalf("expected clamped score of 1, got %f", got)
	}
}
