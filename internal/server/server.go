// internal/server/server.go

// Package server exposes the analysis engine over HTTP. The outreach
// automation pipeline calls POST /api/v1/analyze with each captured prospect
// reply; the dashboard reads conversation state back out.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	stderrors "outreach-engine/internal/common/errors"
	"outreach-engine/internal/common/logger"
	"outreach-engine/internal/engine"
	"outreach-engine/internal/models"
)

// maxRequestBody caps the analyze payload at 64 KiB; LinkedIn replies are
// short and anything larger is hostile.
const maxRequestBody = 64 << 10

// ReplyAnalyzer runs the analysis pipeline for one prospect reply.
type ReplyAnalyzer interface {
	AnalyzeReply(ctx context.Context, req engine.Request) (*engine.Analysis, error)
}

// ConversationReader loads persisted conversation state.
type ConversationReader interface {
	GetConversation(ctx context.Context, prospectID, userID string) (*models.ConversationState, error)
}

// Pinger reports backend liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	analyzer      ReplyAnalyzer
	conversations ConversationReader
	postgres      Pinger
	redis         Pinger
	logger        logger.Logger
	httpServer    *http.Server
}

func New(addr string, readTimeout, writeTimeout time.Duration, analyzer ReplyAnalyzer, conversations ConversationReader, postgres, redis Pinger, log logger.Logger) *Server {
	s := &Server{
		analyzer:      analyzer,
		conversations: conversations,
		postgres:      postgres,
		redis:         redis,
		logger:        log,
	}
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// Routes builds the HTTP mux. Exposed separately so tests can drive the
// handlers through httptest without binding a port.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/conversations", s.handleGetConversation)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.httpServer.Addr,
	})
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ==========================
// Analyze Endpoint
// ==========================

var analyzeRequestSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"prospect_id", "user_id", "reply_text"},
	"properties": map[string]interface{}{
		"prospect_id": map[string]interface{}{"type": "string", "minLength": 1},
		"user_id":     map[string]interface{}{"type": "string", "minLength": 1},
		"reply_text":  map[string]interface{}{"type": "string"},
		"prospect": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":           map[string]interface{}{"type": "string"},
				"first_name":   map[string]interface{}{"type": "string"},
				"company_name": map[string]interface{}{"type": "string"},
			},
		},
	},
}

type analyzeRequest struct {
	ProspectID string                 `json:"prospect_id"`
	UserID     string                 `json:"user_id"`
	ReplyText  string                 `json:"reply_text"`
	Prospect   models.ProspectContext `json:"prospect"`
}

type analyzeResponse struct {
	ProspectID string `json:"prospect_id"`
	UserID     string `json:"user_id"`
	*engine.Analysis
	Persisted bool `json:"persisted"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		s.writeValidationError(w, stderrors.NewInvalidRequestError("request body is not valid JSON"))
		return
	}

	schemaLoader := gojsonschema.NewGoLoader(analyzeRequestSchema)
	documentLoader := gojsonschema.NewGoLoader(raw)
	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if !validation.Valid() {
		details := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			details = append(details, desc.String())
		}
		s.writeValidationError(w, stderrors.NewInvalidRequestError(strings.Join(details, "; ")))
		return
	}

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeValidationError(w, stderrors.NewInvalidRequestError(err.Error()))
		return
	}

	analysis, err := s.analyzer.AnalyzeReply(r.Context(), engine.Request{
		ProspectID: req.ProspectID,
		UserID:     req.UserID,
		ReplyText:  req.ReplyText,
		Prospect:   req.Prospect,
	})
	if err != nil && analysis == nil {
		s.writeAnalysisError(w, err)
		return
	}

	// A store failure after a completed analysis still returns the draft so
	// the caller can reply to the prospect; persisted=false flags the miss.
	writeJSON(w, http.StatusOK, analyzeResponse{
		ProspectID: req.ProspectID,
		UserID:     req.UserID,
		Analysis:   analysis,
		Persisted:  err == nil,
	})
}

// ==========================
// Conversation Endpoint
// ==========================

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	prospectID := r.URL.Query().Get("prospect_id")
	userID := r.URL.Query().Get("user_id")
	if prospectID == "" || userID == "" {
		s.writeValidationError(w, stderrors.NewInvalidRequestError("prospect_id and user_id query parameters are required"))
		return
	}

	state, err := s.conversations.GetConversation(r.Context(), prospectID, userID)
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ==========================
// Health Endpoint
// ==========================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK

	if s.postgres != nil {
		if err := s.postgres.Ping(ctx); err != nil {
			status["postgres"] = "down"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			status["postgres"] = "up"
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			// Redis only backs the rules cache; the engine keeps working.
			status["redis"] = "down"
		} else {
			status["redis"] = "up"
		}
	}

	writeJSON(w, code, status)
}

// ==========================
// Response Helpers
// ==========================

func (s *Server) writeValidationError(w http.ResponseWriter, err *stderrors.StandardError) {
	writeJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error": err,
	})
}

// writeAnalysisError maps a pipeline error to an HTTP status. Internal
// details stay in the structured log; clients get the stable code only.
func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	stdErr, ok := err.(*stderrors.StandardError)
	if !ok {
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	code := http.StatusInternalServerError
	switch stdErr.Code {
	case stderrors.ErrCodeInvalidRequest:
		code = http.StatusBadRequest
	case stderrors.ErrCodeRulesNotFound, stderrors.ErrCodeConversationNotFound:
		code = http.StatusNotFound
	case stderrors.ErrCodeRulesReadFailed,
		stderrors.ErrCodeConversationReadFailed,
		stderrors.ErrCodeConversationWriteFailed,
		stderrors.ErrCodeAppointmentCreateFailed:
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"error": map[string]interface{}{
			"code":      stdErr.Code,
			"message":   stdErr.Message,
			"retryable": stdErr.Retryable,
		},
	})
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		fmt.Fprintf(w, `{"error":"encoding failed"}`)
	}
}
