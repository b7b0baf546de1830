// internal/engine/stage/resolver.go
package stage

import "outreach-engine/internal/models"

// Resolve maps a classification onto the next conversation stage. It is a
// pure function with no memory of the previous stage: every reply is scored
// independently and can move the conversation to any of the three states.
// The confidence boundary is inclusive.
func Resolve(bookingIntent bool, confidenceScore, minConfidence float64) models.Stage {
	switch {
	case bookingIntent && confidenceScore >= minConfidence:
		return models.StageBookingReady
	case bookingIntent:
		return models.StageQualifying
	default:
		return models.StageInitial
	}
}
