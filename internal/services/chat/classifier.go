package chat

import (
	"strings"

	"github.com/madhura1396/rocbot/internal/interfaces"
)

// defaultInsufficientPhrases mark a grounded answer that found nothing in its context
var defaultInsufficientPhrases = []string{
	"couldn't find",
	"could not find",
	"don't have",
	"do not have",
	"no information",
	"doesn't seem to be",
	"not mentioned",
	"no mention",
	"unable to find",
	"unfortunately",
}

// apostrophes folds typographic apostrophes onto ASCII before matching
var apostrophes = strings.NewReplacer("\u2019", "'", "\u2018", "'", "\u02BC", "'")

// PhraseClassifier flags answers containing any of a fixed set of literal phrases
type PhraseClassifier struct {
	phrases []string
}

// NewPhraseClassifier returns a classifier over phrases, or the default set when none are given
func NewPhraseClassifier(phrases ...string) *PhraseClassifier {
	if len(phrases) == 0 {
		phrases = defaultInsufficientPhrases
	}
	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = apostrophes.Replace(strings.ToLower(p))
	}
	return &PhraseClassifier{phrases: lowered}
}

func (c *PhraseClassifier) IsInsufficient(answer string) bool {
	lower := apostrophes.Replace(strings.ToLower(answer))
	for _, phrase := range c.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

var _ interfaces.SufficiencyClassifier = (*PhraseClassifier)(nil)
