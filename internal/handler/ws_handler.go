package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/opexam/opexam-backend/internal/service"
	"github.com/opexam/opexam-backend/internal/session"
	ws "github.com/opexam/opexam-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session snapshots and accepts session actions over a
// WebSocket, so clients react to every state change without polling.
type WSHandler struct {
	sessions *service.SessionService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessions *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// Stream godoc
// WS /ws/v1/sessions/:session_id/stream
// Pushes a snapshot on every state change (including timer ticks) and
// handles answer/flag/goto/submit/cancel actions.
func (h *WSHandler) Stream(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	eng, err := h.sessions.Get(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer rawConn.Close()
	conn := ws.Wrap(rawConn)

	wsLog := h.log.With().Str("session_id", sessionID.String()).Logger()
	wsLog.Info().Msg("Client connected")

	// Push every published snapshot until the subscription is cancelled.
	snapshots, cancelSub := eng.Subscribe()
	defer cancelSub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for snap := range snapshots {
			if err := conn.WriteTyped(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: snap}); err != nil {
				return
			}
		}
	}()

	// Initial state so the client renders without waiting for a change.
	_ = conn.WriteTyped(ws.SnapshotResponse{Event: ws.EventSnapshot, Snapshot: eng.Snapshot()})

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(c, conn, eng, &msg)
		case ws.ActionFlag:
			h.handleFlag(c, conn, eng, &msg)
		case ws.ActionGoto:
			eng.GoTo(msg.Index)
		case ws.ActionSubmit:
			h.handleSubmit(c, conn, wsLog, sessionID)
		case ws.ActionCancel:
			_ = h.sessions.Cancel(c.Request.Context(), sessionID)
		case ws.ActionPing:
			_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}

	cancelSub()
	<-done
}

func (h *WSHandler) handleAnswer(c *gin.Context, conn *ws.Conn, eng *session.Engine, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}
	if msg.Value == "" {
		conn.WriteError("value is required")
		return
	}
	if err := eng.SubmitAnswer(c.Request.Context(), questionID, msg.Value); err != nil {
		conn.WriteError(err.Error())
	}
}

func (h *WSHandler) handleFlag(c *gin.Context, conn *ws.Conn, eng *session.Engine, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		conn.WriteError("invalid question_id format")
		return
	}
	if err := eng.ToggleFlag(c.Request.Context(), questionID); err != nil {
		conn.WriteError(err.Error())
	}
}

// handleSubmit grades in memory and confirms with the final breakdown.
func (h *WSHandler) handleSubmit(c *gin.Context, conn *ws.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	breakdown, err := h.sessions.Finish(c.Request.Context(), sessionID)
	if err != nil && breakdown == nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		conn.WriteError("submit failed")
		return
	}

	wsLog.Info().
		Float64("percentage", breakdown.Percentage).
		Int("correct", breakdown.CorrectCount).
		Msg("Session submitted and graded")

	_ = conn.WriteTyped(ws.GradedResponse{Event: ws.EventGraded, Breakdown: breakdown})
}
