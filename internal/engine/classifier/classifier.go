// internal/engine/classifier/classifier.go
package classifier

import (
	"strings"

	"outreach-engine/internal/models"
)

// Contribution caps for the three scoring terms. The weighted sum is clamped
// to 1.0 so the confidence score always stays inside [0,1].
const (
	keywordWeight  = 0.4
	positiveWeight = 0.3
	urgencyWeight  = 0.3
)

// Fixed sentiment lexicons. Matching is case-insensitive substring, same as
// the trigger keywords; multi-word entries match as phrases.
var (
	positiveLexicon = []string{"yes", "interested", "definitely", "absolutely", "sounds good", "great"}
	urgencyLexicon  = []string{"soon", "quickly", "asap", "urgent", "this week", "tomorrow"}
)

// Result is the outcome of scoring a single prospect reply.
type Result struct {
	BookingIntent   bool    `json:"booking_intent"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// Classify scores a prospect reply against the user's trigger keywords and
// the fixed lexicons. It is a pure lexical heuristic: deterministic, no
// external calls, and an empty reply degrades to a zero score rather than an
// error.
func Classify(replyText string, rules *models.RulesConfig) Result {
	text := strings.ToLower(replyText)

	matched := 0
	for _, kw := range rules.TriggerKeywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k != "" && strings.Contains(text, k) {
			matched++
		}
	}

	score := 0.0
	// Any trigger keyword hit earns the full keyword contribution. An empty
	// keyword list contributes 0.
	if matched > 0 {
		score += keywordWeight
	}
	score += positiveWeight * lexiconRatio(text, positiveLexicon)
	score += urgencyWeight * lexiconRatio(text, urgencyLexicon)

	if score > 1.0 {
		score = 1.0
	}

	return Result{
		BookingIntent:   matched > 0,
		ConfidenceScore: score,
	}
}

func lexiconRatio(text string, lexicon []string) float64 {
	hits := 0
	for _, word := range lexicon {
		if strings.Contains(text, word) {
			hits++
		}
	}
	return float64(hits) / float64(len(lexicon))
}
