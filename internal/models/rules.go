// internal/models/rules.go
package models

// RulesConfig is the per-user analysis configuration. It is owned by the
// settings UI and read-only input to the engine.
type RulesConfig struct {
	TriggerKeywords        []string `json:"trigger_keywords"`
	MinConfidenceScore     float64  `json:"min_confidence_score"`
	BookingMessageTemplate string   `json:"booking_message_template"`
	QualificationQuestions []string `json:"qualification_questions"`
}
