package handlers

import (
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/services"
)

// WebSocket event types sent by the server.
const (
	ChatEventTranscript = "transcript"
	ChatEventMessage    = "message"
	ChatEventError      = "error"
)

// ChatEvent is a server-to-client websocket frame.
type ChatEvent struct {
	Type         string               `json:"type"`
	Conversation *models.Conversation `json:"conversation,omitempty"`
	Message      *models.ChatMessage  `json:"message,omitempty"`
	Error        string               `json:"error,omitempty"`
	Text         string               `json:"text,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocket handles GET /api/chat/ws.
//
// The session's conversation is resumed, or a new one is started and its
// cookie set on the upgrade response. The first frame is the transcript.
// Each client frame is a SendMessageRequest answered by one message event;
// a failed turn sends the apology message followed by an error event.
func (h *ChatHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var conv *models.Conversation
	if id, err := h.sessions.ConversationID(r); err == nil {
		conv, _ = h.chat.Transcript(ctx, id)
	}
	if conv == nil {
		started, err := h.start(w, r)
		if err != nil {
			writeServiceError(w, h.logger, "Start chat", err, nil)
			return
		}
		conv = started
	}

	header := http.Header{}
	for _, c := range w.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", c)
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The server's read and write timeouts stay on the hijacked connection.
	_ = conn.NetConn().SetDeadline(time.Time{})
	// A full-length message of 4-byte characters plus the JSON envelope.
	conn.SetReadLimit(services.MaxChatMessageLength*utf8.UTFMax + 1024)

	if err := conn.WriteJSON(ChatEvent{Type: ChatEventTranscript, Conversation: conv}); err != nil {
		return
	}

	for {
		var req SendMessageRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("WebSocket read failed", zap.Error(err))
			}
			return
		}

		reply, err := h.chat.Send(ctx, conv.ID, req.Text)
		if err != nil {
			if errors.Is(err, apperrors.ErrChat) {
				if err := conn.WriteJSON(ChatEvent{Type: ChatEventMessage, Message: &reply}); err != nil {
					return
				}
			}
			_, code := errorStatus(err)
			if err := conn.WriteJSON(ChatEvent{Type: ChatEventError, Error: code, Text: apperrors.UserMessage(err)}); err != nil {
				return
			}
			if errors.Is(err, apperrors.ErrNotFound) {
				// The conversation expired; the client has to start over.
				return
			}
			continue
		}

		if err := conn.WriteJSON(ChatEvent{Type: ChatEventMessage, Message: &reply}); err != nil {
			return
		}
	}
}
