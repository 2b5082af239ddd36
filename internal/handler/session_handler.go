package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opexam/opexam-backend/internal/model"
	"github.com/opexam/opexam-backend/internal/response"
	"github.com/opexam/opexam-backend/internal/service"
	"github.com/opexam/opexam-backend/internal/session"
	"github.com/opexam/opexam-backend/internal/validator"
)

// SessionHandler exposes the exam session engine over REST.
type SessionHandler struct {
	sessions *service.SessionService
	tokens   *service.TokenService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, tokens *service.TokenService) *SessionHandler {
	return &SessionHandler{sessions: sessions, tokens: tokens}
}

// Start godoc
// POST /api/v1/sessions
// Starts a new exam session against a question bank and returns the initial
// snapshot together with a session-scoped token.
func (h *SessionHandler) Start(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	bankID, err := uuid.Parse(req.BankID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	eng, err := h.sessions.Start(c.Request.Context(), bankID, req.DurationMinutes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoQuestionsAvailable):
			response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
		case errors.Is(err, session.ErrInvalidConfiguration):
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidSession)
		case errors.Is(err, service.ErrDurationTooLong):
			response.Fail(c, http.StatusBadRequest, response.ErrDurationTooLong)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	token, err := h.tokens.IssueSessionToken(eng.ID())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"session": eng.Snapshot(),
		"token":   token,
	})
}

// GetState godoc
// GET /api/v1/sessions/:session_id
// Returns the current snapshot: position, answers, remaining time, state.
func (h *SessionHandler) GetState(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, eng.Snapshot())
}

// SubmitAnswer godoc
// POST /api/v1/sessions/:session_id/answers
// Upserts the answer for one question. Last write wins.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := eng.SubmitAnswer(c.Request.Context(), questionID, req.Value); err != nil {
		h.failEngine(c, err)
		return
	}
	response.Success(c, http.StatusOK, eng.Snapshot())
}

// ToggleFlag godoc
// POST /api/v1/sessions/:session_id/flag
// Flips the review flag on a question.
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}

	var req model.FlagRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := eng.ToggleFlag(c.Request.Context(), questionID); err != nil {
		h.failEngine(c, err)
		return
	}
	response.Success(c, http.StatusOK, eng.Snapshot())
}

// Move godoc
// POST /api/v1/sessions/:session_id/position
// Navigates within the session. Out-of-range requests are ignored, never
// errors: the response always carries the (possibly unchanged) snapshot.
func (h *SessionHandler) Move(c *gin.Context) {
	eng, ok := h.engine(c)
	if !ok {
		return
	}

	var req model.MoveRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	switch req.Direction {
	case "next":
		eng.Next()
	case "previous":
		eng.Previous()
	case "goto":
		eng.GoTo(req.Index)
	}
	response.Success(c, http.StatusOK, eng.Snapshot())
}

// Finish godoc
// POST /api/v1/sessions/:session_id/finish
// Submits the exam, scores it and persists the result. Idempotent.
func (h *SessionHandler) Finish(c *gin.Context) {
	sessionID, _ := uuid.Parse(c.Param("session_id"))

	breakdown, err := h.sessions.Finish(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, session.ErrNotRunning):
			response.Fail(c, http.StatusConflict, response.ErrSessionNotRunning)
		case breakdown != nil:
			// Graded, but the result write failed; the client may retry.
			response.Fail(c, http.StatusInternalServerError, response.ErrResultNotSaved)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"breakdown": breakdown})
}

// Cancel godoc
// POST /api/v1/sessions/:session_id/cancel
// Abandons the session without scoring. Checkpointed answers remain until
// the deadline so the session can still be resumed.
func (h *SessionHandler) Cancel(c *gin.Context) {
	sessionID, _ := uuid.Parse(c.Param("session_id"))

	if err := h.sessions.Cancel(c.Request.Context(), sessionID); err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "cancelled"})
}

// Resume godoc
// POST /api/v1/sessions/:session_id/resume
// Rebuilds a session lost to a process restart from its recovery replica.
func (h *SessionHandler) Resume(c *gin.Context) {
	sessionID, _ := uuid.Parse(c.Param("session_id"))

	eng, err := h.sessions.Resume(c.Request.Context(), sessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		case errors.Is(err, service.ErrSessionExpired):
			response.Fail(c, http.StatusGone, response.ErrSessionExpired)
		case errors.Is(err, service.ErrNoQuestionsAvailable):
			response.Fail(c, http.StatusNotFound, response.ErrNoQuestions)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, eng.Snapshot())
}

// engine resolves the :session_id param into a live engine or writes the
// error response itself.
func (h *SessionHandler) engine(c *gin.Context) (*session.Engine, bool) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	eng, err := h.sessions.Get(sessionID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	return eng, true
}

func (h *SessionHandler) failEngine(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrUnknownQuestion):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrUnknownQuestion)
	case errors.Is(err, session.ErrNotRunning):
		response.Fail(c, http.StatusConflict, response.ErrSessionNotRunning)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
