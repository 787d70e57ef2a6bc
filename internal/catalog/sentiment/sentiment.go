// Package sentiment classifies customer feedback as positive or negative.
package sentiment

import (
	"strings"
	"unicode"

	"github.com/abgdnv/partsfinder/internal/model"
)

// Classifier labels a feedback text.
type Classifier interface {
	Classify(text string) model.Sentiment
}

// Lexicon scores text by counting cue words. Negation words flip the next cue.
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
	negators map[string]struct{}
}

var (
	defaultPositive = []string{
		"good", "great", "excellent", "amazing", "awesome", "best", "fast", "quick", "friendly",
		"helpful", "recommend", "love", "nice", "perfect", "reliable", "affordable", "cheap",
		"fair", "professional", "happy", "satisfied", "polite", "clean", "genuine", "quality",
	}
	defaultNegative = []string{
		"bad", "worst", "terrible", "awful", "poor", "slow", "rude", "expensive", "overpriced",
		"broken", "fake", "dirty", "late", "never", "unhelpful", "disappointed", "disappointing",
		"horrible", "scam", "waste", "defective", "wrong", "unprofessional", "angry", "hate",
	}
	defaultNegators = []string{"not", "no", "dont", "don't", "didnt", "didn't", "isnt", "isn't", "wasnt", "wasn't"}
)

// NewLexicon builds the default English auto-shop lexicon.
func NewLexicon() *Lexicon {
	return &Lexicon{
		positive: toSet(defaultPositive),
		negative: toSet(defaultNegative),
		negators: toSet(defaultNegators),
	}
}

// Classify returns negative only when negative cues outnumber positive ones.
func (l *Lexicon) Classify(text string) model.Sentiment {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	score := 0
	negate := false
	for _, w := range words {
		if _, ok := l.negators[w]; ok {
			negate = true
			continue
		}
		delta := 0
		if _, ok := l.positive[w]; ok {
			delta = 1
		} else if _, ok := l.negative[w]; ok {
			delta = -1
		}
		if delta == 0 {
			continue
		}
		if negate {
			delta = -delta
			negate = false
		}
		score += delta
	}
	if score < 0 {
		return model.SentimentNegative
	}
	return model.SentimentPositive
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
