// internal/store/postgres.go

// Package store persists conversation state, pending appointments and
// per-user analysis rules in PostgreSQL, with an optional Redis cache in
// front of the rules lookup.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"outreach-engine/internal/common/errors"
	"outreach-engine/internal/common/logger"
	"outreach-engine/internal/common/metrics"
	"outreach-engine/internal/engine"
	"outreach-engine/internal/models"
)

// Config controls the appointment record the store creates when a
// conversation reaches booking_ready.
type Config struct {
	AppointmentTitle           string
	AppointmentDurationMinutes int
	AppointmentLeadDays        int
}

func (c *Config) applyDefaults() {
	if c.AppointmentTitle == "" {
		c.AppointmentTitle = "AI-Booked Consultation"
	}
	if c.AppointmentDurationMinutes <= 0 {
		c.AppointmentDurationMinutes = 60
	}
	if c.AppointmentLeadDays <= 0 {
		c.AppointmentLeadDays = 7
	}
}

// PostgresStore implements engine.RulesSource and engine.ConversationRecorder
// on top of database/sql.
type PostgresStore struct {
	db     *sql.DB
	cfg    Config
	logger logger.Logger

	now   func() time.Time
	newID func() string
}

func NewPostgresStore(db *sql.DB, cfg Config, log logger.Logger) *PostgresStore {
	cfg.applyDefaults()
	return &PostgresStore{
		db:     db,
		cfg:    cfg,
		logger: log,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

const getRulesQuery = `
	SELECT trigger_keywords, min_confidence_score, booking_message_template, qualification_questions
	FROM outreach_rules
	WHERE user_id = $1`

// GetRules loads the analysis rules owned by userID. A user without rules is
// a configuration error, not an empty default.
func (s *PostgresStore) GetRules(ctx context.Context, userID string) (*models.RulesConfig, error) {
	var (
		keywordsRaw  []byte
		questionsRaw []byte
		rules        models.RulesConfig
	)

	row := s.db.QueryRowContext(ctx, getRulesQuery, userID)
	err := row.Scan(&keywordsRaw, &rules.MinConfidenceScore, &rules.BookingMessageTemplate, &questionsRaw)
	if err == sql.ErrNoRows {
		return nil, errors.NewRulesNotFoundError(userID)
	}
	if err != nil {
		metrics.StoreFailures.WithLabelValues("rules_read").Inc()
		return nil, errors.NewRulesReadFailedError(err)
	}

	if len(keywordsRaw) > 0 {
		if err := json.Unmarshal(keywordsRaw, &rules.TriggerKeywords); err != nil {
			return nil, errors.NewRulesReadFailedError(err)
		}
	}
	if len(questionsRaw) > 0 {
		if err := json.Unmarshal(questionsRaw, &rules.QualificationQuestions); err != nil {
			return nil, errors.NewRulesReadFailedError(err)
		}
	}

	return &rules, nil
}

// The upsert is a single statement so concurrent analyses of the same
// prospect cannot interleave between read and write. The reply history is
// append-only: conflicting rows concatenate the new reply onto the existing
// JSONB array while every other column takes the latest analysis.
const upsertConversationQuery = `
	INSERT INTO conversation_states (
		prospect_id, user_id, conversation_stage, ai_confidence_score,
		last_ai_response, booking_intent_detected, prospect_responses,
		created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	ON CONFLICT (prospect_id, user_id) DO UPDATE SET
		conversation_stage = EXCLUDED.conversation_stage,
		ai_confidence_score = EXCLUDED.ai_confidence_score,
		last_ai_response = EXCLUDED.last_ai_response,
		booking_intent_detected = EXCLUDED.booking_intent_detected,
		prospect_responses = conversation_states.prospect_responses || EXCLUDED.prospect_responses,
		updated_at = NOW()`

const insertAppointmentQuery = `
	INSERT INTO pending_appointments (
		id, prospect_id, user_id, title, status, scheduled_at, duration_minutes, created_at
	)
	SELECT $1, $2, $3, $4, $5, $6, $7, NOW()
	WHERE NOT EXISTS (
		SELECT 1 FROM pending_appointments
		WHERE prospect_id = $2 AND user_id = $3 AND status = $5
	)`

// RecordReply upserts the conversation state for one analyzed reply and, for
// booking-ready analyses, creates the pending appointment unless one is
// already awaiting confirmation for this prospect.
func (s *PostgresStore) RecordReply(ctx context.Context, prospectID, userID string, analysis *engine.Analysis, replyText string) error {
	newResponses, err := json.Marshal([]string{replyText})
	if err != nil {
		return errors.NewConversationWriteFailedError(err)
	}

	_, err = s.db.ExecContext(ctx, upsertConversationQuery,
		prospectID,
		userID,
		string(analysis.Stage),
		analysis.ConfidenceScore,
		analysis.Response,
		analysis.BookingIntent,
		newResponses,
	)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("conversation_upsert").Inc()
		return errors.NewConversationWriteFailedError(err)
	}

	if analysis.Stage != models.StageBookingReady {
		return nil
	}
	return s.createPendingAppointment(ctx, prospectID, userID)
}

func (s *PostgresStore) createPendingAppointment(ctx context.Context, prospectID, userID string) error {
	appointment := models.PendingAppointment{
		ID:              s.newID(),
		ProspectID:      prospectID,
		UserID:          userID,
		Title:           s.cfg.AppointmentTitle,
		Status:          models.AppointmentStatusPending,
		ScheduledAt:     s.now().UTC().AddDate(0, 0, s.cfg.AppointmentLeadDays),
		DurationMinutes: s.cfg.AppointmentDurationMinutes,
	}

	result, err := s.db.ExecContext(ctx, insertAppointmentQuery,
		appointment.ID,
		appointment.ProspectID,
		appointment.UserID,
		appointment.Title,
		appointment.Status,
		appointment.ScheduledAt,
		appointment.DurationMinutes,
	)
	if err != nil {
		metrics.StoreFailures.WithLabelValues("appointment_insert").Inc()
		return errors.NewAppointmentCreateFailedError(err)
	}

	inserted, err := result.RowsAffected()
	if err == nil && inserted == 0 {
		s.logger.Debug("appointment already pending, skipping", map[string]interface{}{
			"prospectId": prospectID,
			"userId":     userID,
		})
		return nil
	}

	metrics.AppointmentsCreated.Inc()
	s.logger.Info("pending appointment created", map[string]interface{}{
		"appointmentId": appointment.ID,
		"prospectId":    prospectID,
		"userId":        userID,
		"scheduledAt":   appointment.ScheduledAt,
	})
	return nil
}

const getConversationQuery = `
	SELECT prospect_id, user_id, conversation_stage, ai_confidence_score,
		last_ai_response, booking_intent_detected, prospect_responses,
		created_at, updated_at
	FROM conversation_states
	WHERE prospect_id = $1 AND user_id = $2`

// GetConversation returns the persisted state for one prospect.
func (s *PostgresStore) GetConversation(ctx context.Context, prospectID, userID string) (*models.ConversationState, error) {
	var (
		state        models.ConversationState
		stageRaw     string
		responsesRaw []byte
	)

	row := s.db.QueryRowContext(ctx, getConversationQuery, prospectID, userID)
	err := row.Scan(
		&state.ProspectID,
		&state.UserID,
		&stageRaw,
		&state.ConfidenceScore,
		&state.LastResponse,
		&state.BookingIntent,
		&responsesRaw,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewConversationNotFoundError(prospectID, userID)
	}
	if err != nil {
		metrics.StoreFailures.WithLabelValues("conversation_read").Inc()
		return nil, errors.NewConversationReadFailedError(err)
	}

	state.Stage = models.Stage(stageRaw)
	if len(responsesRaw) > 0 {
		if err := json.Unmarshal(responsesRaw, &state.ProspectResponses); err != nil {
			return nil, errors.NewConversationReadFailedError(err)
		}
	}

	return &state, nil
}
