// internal/models/conversation.go
package models

import "time"

// Stage describes where a prospect sits in the automated conversation funnel.
type Stage string

const (
	StageInitial      Stage = "initial"
	StageQualifying   Stage = "qualifying"
	StageBookingReady Stage = "booking_ready"
)

// Valid reports whether s is one of the known funnel stages.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageQualifying, StageBookingReady:
		return true
	}
	return false
}

// ConversationState is the persisted per-prospect analysis record. It is
// created on the first analyzed reply and overwritten on every subsequent
// one; the reply history only ever grows.
type ConversationState struct {
	ProspectID        string    `json:"prospect_id"`
	UserID            string    `json:"user_id"`
	Stage             Stage     `json:"conversation_stage"`
	ConfidenceScore   float64   `json:"ai_confidence_score"`
	LastResponse      string    `json:"last_ai_response"`
	BookingIntent     bool      `json:"booking_intent_detected"`
	ProspectResponses []string  `json:"prospect_responses"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
