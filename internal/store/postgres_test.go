// internal/store/postgres_test.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach-engine/internal/common/errors"
	"outreach-engine/internal/common/logger"
	"outreach-engine/internal/engine"
	"outreach-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStore(db, Config{}, logger.NewNoOpLogger())
	s.newID = func() string { return "appointment-fixed-id" }
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, mock
}

func bookingAnalysis() *engine.Analysis {
	return &engine.Analysis{
		Stage:           models.StageBookingReady,
		BookingIntent:   true,
		ConfidenceScore: 0.75,
		Response:        "Perfect! Here's my calendar.",
	}
}

// ==========================
// GetRules Tests
// ==========================

func TestGetRules_Success(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{
		"trigger_keywords", "min_confidence_score", "booking_message_template", "qualification_questions",
	}).AddRow(
		[]byte(`["book a call","schedule"]`),
		0.5,
		"Let's talk about {company_name}.",
		[]byte(`["What does your hiring process look like?"]`),
	)
	mock.ExpectQuery(`SELECT trigger_keywords, min_confidence_score`).
		WithArgs("user-1").
		WillReturnRows(rows)

	rules, err := s.GetRules(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"book a call", "schedule"}, rules.TriggerKeywords)
	assert.Equal(t, 0.5, rules.MinConfidenceScore)
	assert.Equal(t, "Let's talk about {company_name}.", rules.BookingMessageTemplate)
	assert.Len(t, rules.QualificationQuestions, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRules_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT trigger_keywords, min_confidence_score`).
		WithArgs("user-unknown").
		WillReturnError(sql.ErrNoRows)

	rules, err := s.GetRules(context.Background(), "user-unknown")
	assert.Nil(t, rules)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRulesNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestGetRules_DatabaseError(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT trigger_keywords, min_confidence_score`).
		WithArgs("user-1").
		WillReturnError(fmt.Errorf("connection refused"))

	_, err := s.GetRules(context.Background(), "user-1")

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRulesReadFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestGetRules_NullJSONColumns(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{
		"trigger_keywords", "min_confidence_score", "booking_message_template", "qualification_questions",
	}).AddRow(nil, 0.5, "template", nil)
	mock.ExpectQuery(`SELECT trigger_keywords, min_confidence_score`).
		WithArgs("user-1").
		WillReturnRows(rows)

	rules, err := s.GetRules(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, rules.TriggerKeywords)
	assert.Empty(t, rules.QualificationQuestions)
}

// ==========================
// RecordReply Tests
// ==========================

func TestRecordReply_UpsertOnly(t *testing.T) {
	s, mock := newTestStore(t)

	analysis := &engine.Analysis{
		Stage:           models.StageQualifying,
		BookingIntent:   true,
		ConfidenceScore: 0.3,
		Response:        "Hi Dana, thanks for your interest! What roles are open?",
	}

	mock.ExpectExec(`INSERT INTO conversation_states`).
		WithArgs(
			"prospect-1",
			"user-1",
			"qualifying",
			0.3,
			analysis.Response,
			true,
			[]byte(`["maybe, tell me more"]`),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.RecordReply(context.Background(), "prospect-1", "user-1", analysis, "maybe, tell me more")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReply_BookingReadyCreatesAppointment(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO conversation_states`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO pending_appointments`).
		WithArgs(
			"appointment-fixed-id",
			"prospect-1",
			"user-1",
			"AI-Booked Consultation",
			models.AppointmentStatusPending,
			time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC),
			60,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.RecordReply(context.Background(), "prospect-1", "user-1", bookingAnalysis(), "yes, schedule it")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReply_AppointmentAlreadyPending(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO conversation_states`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO pending_appointments`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.RecordReply(context.Background(), "prospect-1", "user-1", bookingAnalysis(), "yes again")
	require.NoError(t, err, "duplicate booking_ready replies must not fail")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordReply_UpsertFailure(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO conversation_states`).
		WillReturnError(fmt.Errorf("deadlock detected"))

	err := s.RecordReply(context.Background(), "prospect-1", "user-1", bookingAnalysis(), "yes")

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConversationWriteFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestRecordReply_AppointmentInsertFailure(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO conversation_states`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO pending_appointments`).
		WillReturnError(fmt.Errorf("relation does not exist"))

	err := s.RecordReply(context.Background(), "prospect-1", "user-1", bookingAnalysis(), "yes")

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeAppointmentCreateFailed, stdErr.Code)
}

// ==========================
// GetConversation Tests
// ==========================

func TestGetConversation_Success(t *testing.T) {
	s, mock := newTestStore(t)

	createdAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	updatedAt := time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"prospect_id", "user_id", "conversation_stage", "ai_confidence_score",
		"last_ai_response", "booking_intent_detected", "prospect_responses",
		"created_at", "updated_at",
	}).AddRow(
		"prospect-1", "user-1", "booking_ready", 0.8,
		"Perfect!", true, []byte(`["interested","yes, book a call"]`),
		createdAt, updatedAt,
	)
	mock.ExpectQuery(`SELECT prospect_id, user_id, conversation_stage`).
		WithArgs("prospect-1", "user-1").
		WillReturnRows(rows)

	state, err := s.GetConversation(context.Background(), "prospect-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StageBookingReady, state.Stage)
	assert.Equal(t, []string{"interested", "yes, book a call"}, state.ProspectResponses)
	assert.Equal(t, createdAt, state.CreatedAt)
	assert.Equal(t, updatedAt, state.UpdatedAt)
}

func TestGetConversation_NotFound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT prospect_id, user_id, conversation_stage`).
		WithArgs("prospect-x", "user-1").
		WillReturnError(sql.ErrNoRows)

	state, err := s.GetConversation(context.Background(), "prospect-x", "user-1")
	assert.Nil(t, state)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConversationNotFound, stdErr.Code)
}
