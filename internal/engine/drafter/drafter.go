// internal/engine/drafter/drafter.go
package drafter

import (
	"fmt"
	"math/rand"
	"strings"

	"outreach-engine/internal/models"
)

const companyPlaceholder = "{company_name}"

// companyFallback replaces the company name when the prospect record has none.
const companyFallback = "your organization"

// defaultQualificationQuestion keeps the qualifying draft usable when a user
// has not configured any questions yet.
const defaultQualificationQuestion = "What does your current hiring process look like?"

// Drafter renders the follow-up message for a resolved stage. Question
// selection goes through an injected picker so tests stay deterministic;
// production uses uniform math/rand.
type Drafter struct {
	pick func(n int) int
}

// New returns a Drafter with the uniform-random question picker.
func New() *Drafter {
	return &Drafter{pick: rand.Intn}
}

// NewWithPicker returns a Drafter using pick to select a qualification
// question index in [0, n).
func NewWithPicker(pick func(n int) int) *Drafter {
	return &Drafter{pick: pick}
}

// Draft renders the outgoing message for the resolved stage.
func (d *Drafter) Draft(stage models.Stage, prospect models.ProspectContext, rules *models.RulesConfig) string {
	switch stage {
	case models.StageBookingReady:
		return strings.ReplaceAll(rules.BookingMessageTemplate, companyPlaceholder, companyName(prospect))

	case models.StageQualifying:
		question := defaultQualificationQuestion
		if n := len(rules.QualificationQuestions); n > 0 {
			question = rules.QualificationQuestions[d.pick(n)]
		}
		return fmt.Sprintf("Hi %s, thanks for your interest! %s", prospect.FirstName, question)

	default:
		return fmt.Sprintf("Thanks for connecting! I'm curious how %s is approaching employee retention right now. What challenges are you seeing?", companyName(prospect))
	}
}

func companyName(prospect models.ProspectContext) string {
	if prospect.CompanyName == "" {
		return companyFallback
	}
	return prospect.CompanyName
}
