// internal/engine/analyzer.go

// Package engine runs the reply analysis pipeline: classify the prospect's
// reply, resolve the conversation stage, draft the follow-up message, then
// hand the result to the conversation store.
package engine

import (
	"context"
	"time"

	"outreach-engine/internal/common/logger"
	"outreach-engine/internal/common/metrics"
	"outreach-engine/internal/engine/classifier"
	"outreach-engine/internal/engine/drafter"
	"outreach-engine/internal/engine/stage"
	"outreach-engine/internal/models"
)

// RulesSource loads the per-user analysis rules.
type RulesSource interface {
	GetRules(ctx context.Context, userID string) (*models.RulesConfig, error)
}

// ConversationRecorder persists the outcome of an analysis. Implementations
// must upsert the conversation state and, for booking-ready analyses, create
// the pending appointment.
type ConversationRecorder interface {
	RecordReply(ctx context.Context, prospectID, userID string, analysis *Analysis, replyText string) error
}

// Request carries one prospect reply through the pipeline.
type Request struct {
	ProspectID string
	UserID     string
	ReplyText  string
	Prospect   models.ProspectContext
}

// Analysis is the outcome of analyzing a single reply.
type Analysis struct {
	Stage           models.Stage `json:"stage"`
	BookingIntent   bool         `json:"booking_intent_detected"`
	ConfidenceScore float64      `json:"confidence_score"`
	Response        string       `json:"response"`
}

// Analyzer wires the classifier, stage resolver and drafter to the store.
type Analyzer struct {
	rules    RulesSource
	recorder ConversationRecorder
	drafter  *drafter.Drafter
	logger   logger.Logger
}

func NewAnalyzer(rules RulesSource, recorder ConversationRecorder, d *drafter.Drafter, log logger.Logger) *Analyzer {
	return &Analyzer{
		rules:    rules,
		recorder: recorder,
		drafter:  d,
		logger:   log,
	}
}

// AnalyzeReply scores one reply and persists the resulting conversation
// state. Classification and drafting are pure and cannot fail; only the rules
// lookup and the store write return errors. When the store write fails the
// completed analysis is still returned alongside the error, so callers can
// surface the draft while the persistence layer retries.
func (a *Analyzer) AnalyzeReply(ctx context.Context, req Request) (*Analysis, error) {
	start := time.Now()

	log := a.logger.WithFields(map[string]interface{}{
		"prospectId": req.ProspectID,
		"userId":     req.UserID,
	})

	rules, err := a.rules.GetRules(ctx, req.UserID)
	if err != nil {
		log.WithError(err).Error("failed to load analysis rules", nil)
		return nil, err
	}

	result := classifier.Classify(req.ReplyText, rules)
	resolved := stage.Resolve(result.BookingIntent, result.ConfidenceScore, rules.MinConfidenceScore)
	response := a.drafter.Draft(resolved, req.Prospect, rules)

	analysis := &Analysis{
		Stage:           resolved,
		BookingIntent:   result.BookingIntent,
		ConfidenceScore: result.ConfidenceScore,
		Response:        response,
	}

	metrics.RepliesAnalyzed.WithLabelValues(string(resolved)).Inc()
	if result.BookingIntent {
		metrics.BookingIntentDetected.Inc()
	}

	if err := a.recorder.RecordReply(ctx, req.ProspectID, req.UserID, analysis, req.ReplyText); err != nil {
		log.WithError(err).Error("failed to persist analysis", map[string]interface{}{
			"stage": string(resolved),
		})
		return analysis, err
	}

	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	log.Info("reply analyzed", map[string]interface{}{
		"stage":         string(resolved),
		"bookingIntent": result.BookingIntent,
		"confidence":    result.ConfidenceScore,
		"durationMs":    time.Since(start).Milliseconds(),
	})

	return analysis, nil
}
