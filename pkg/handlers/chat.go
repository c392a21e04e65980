package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/services"
	"github.com/greenthumb-app/greenthumb/pkg/session"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// SendMessageRequest is a user chat message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessageResponse carries the assistant reply.
type SendMessageResponse struct {
	Reply models.ChatMessage `json:"reply"`
}

// ============================================================================
// Handler
// ============================================================================

// ChatHandler serves the chat assistant. The conversation handle lives in the
// session cookie.
type ChatHandler struct {
	chat     services.ChatService
	sessions *session.Manager
	logger   *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chat services.ChatService, sessions *session.Manager, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		sessions: sessions,
		logger:   logger.Named("chat-handler"),
	}
}

// RegisterRoutes registers the chat handler's routes on the mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat/session", h.StartSession)
	mux.HandleFunc("DELETE /api/chat/session", h.EndSession)
	mux.HandleFunc("GET /api/chat", h.Transcript)
	mux.HandleFunc("POST /api/chat/messages", h.SendMessage)
	mux.HandleFunc("GET /api/chat/ws", h.WebSocket)
}

// StartSession handles POST /api/chat/session.
// Ends the current conversation, if any, and starts a new one.
func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	if id, err := h.sessions.ConversationID(r); err == nil {
		_ = h.chat.End(r.Context(), id)
	}

	conv, err := h.start(w, r)
	if err != nil {
		writeServiceError(w, h.logger, "Start chat", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusCreated, conv)
}

// EndSession handles DELETE /api/chat/session.
func (h *ChatHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	if id, err := h.sessions.ConversationID(r); err == nil {
		if err := h.chat.End(r.Context(), id); err != nil {
			writeServiceError(w, h.logger, "End chat", err, nil)
			return
		}
	}
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Error("Failed to clear session cookie", zap.Error(err))
	}
	writeData(w, h.logger, http.StatusOK, nil)
}

// Transcript handles GET /api/chat.
func (h *ChatHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	id, ok := h.conversationID(w, r)
	if !ok {
		return
	}

	conv, err := h.chat.Transcript(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "Get transcript", err, nil)
		return
	}
	writeData(w, h.logger, http.StatusOK, conv)
}

// SendMessage handles POST /api/chat/messages.
// When the model fails the apology that was added to the transcript is
// returned in data alongside the error.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.conversationID(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	reply, err := h.chat.Send(r.Context(), id, req.Text)
	if err != nil {
		var data any
		if errors.Is(err, apperrors.ErrChat) {
			data = SendMessageResponse{Reply: reply}
		}
		writeServiceError(w, h.logger, "Send chat message", err, data)
		return
	}
	writeData(w, h.logger, http.StatusOK, SendMessageResponse{Reply: reply})
}

// start creates a conversation and stores its handle in the cookie.
func (h *ChatHandler) start(w http.ResponseWriter, r *http.Request) (*models.Conversation, error) {
	conv, err := h.chat.Start(r.Context())
	if err != nil {
		return nil, err
	}
	if err := h.sessions.SetConversationID(w, r, conv.ID); err != nil {
		_ = h.chat.End(context.WithoutCancel(r.Context()), conv.ID)
		return nil, err
	}
	return conv, nil
}

func (h *ChatHandler) conversationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := h.sessions.ConversationID(r)
	if err != nil {
		if err := ErrorResponse(w, http.StatusNotFound, "no_conversation",
			"No chat is in progress. Start a new chat first."); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}
