package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenthumb-app/greenthumb/pkg/apperrors"
	"github.com/greenthumb-app/greenthumb/pkg/models"
	"github.com/greenthumb-app/greenthumb/pkg/prompts"
)

// MaxChatMessageLength bounds a single user message, in characters.
const MaxChatMessageLength = 4000

// ChatService holds chat conversations in memory. Each conversation allows
// one in-flight model request at a time.
type ChatService interface {
	// Start creates a conversation opened by the greeting.
	Start(ctx context.Context) (*models.Conversation, error)

	// Send appends the user message and the assistant reply. When the model
	// fails, the apology message is appended and returned together with an
	// error wrapping apperrors.ErrChat; the failed turn is not sent to the
	// model again.
	Send(ctx context.Context, id uuid.UUID, text string) (models.ChatMessage, error)

	// Transcript returns a snapshot of the conversation.
	Transcript(ctx context.Context, id uuid.UUID) (*models.Conversation, error)

	// End discards the conversation. Ending an unknown conversation is not an error.
	End(ctx context.Context, id uuid.UUID) error

	// RunJanitor expires idle conversations every interval until ctx is done.
	RunJanitor(ctx context.Context, interval time.Duration)
}

type conversation struct {
	id           uuid.UUID
	transcript   []models.ChatMessage
	history      []models.ChatMessage // turns the model has seen
	startedAt    time.Time
	lastActiveAt time.Time
	busy         bool
}

func (c *conversation) snapshot() *models.Conversation {
	return &models.Conversation{
		ID:           c.id,
		Transcript:   slices.Clone(c.transcript),
		StartedAt:    c.startedAt,
		LastActiveAt: c.lastActiveAt,
	}
}

type chatService struct {
	ai               PlantAI
	idleTimeout      time.Duration
	maxConversations int
	now              func() time.Time
	logger           *zap.Logger

	mu            sync.Mutex
	conversations map[uuid.UUID]*conversation
}

// NewChatService creates the chat service. A non-positive idleTimeout keeps
// conversations until they are ended; a non-positive maxConversations means
// no limit.
func NewChatService(ai PlantAI, idleTimeout time.Duration, maxConversations int, logger *zap.Logger) ChatService {
	return &chatService{
		ai:               ai,
		idleTimeout:      idleTimeout,
		maxConversations: maxConversations,
		now:              time.Now,
		logger:           logger.Named("chat-service"),
		conversations:    make(map[uuid.UUID]*conversation),
	}
}

var _ ChatService = (*chatService)(nil)

func (s *chatService) Start(ctx context.Context) (*models.Conversation, error) {
	now := s.now()
	conv := &conversation{
		id:           uuid.New(),
		transcript:   []models.ChatMessage{{Author: models.ChatAuthorBot, Text: prompts.ChatGreeting}},
		history:      []models.ChatMessage{},
		startedAt:    now,
		lastActiveAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(now)
	if s.maxConversations > 0 && len(s.conversations) >= s.maxConversations {
		s.evictOldestLocked()
	}
	s.conversations[conv.id] = conv

	s.logger.Debug("Conversation started", zap.String("conversation_id", conv.id.String()))
	return conv.snapshot(), nil
}

func (s *chatService) Send(ctx context.Context, id uuid.UUID, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: message is empty", apperrors.ErrValidation)
	}
	if utf8.RuneCountInString(text) > MaxChatMessageLength {
		return models.ChatMessage{}, fmt.Errorf("%w: message is longer than %d characters", apperrors.ErrValidation, MaxChatMessageLength)
	}

	s.mu.Lock()
	conv, err := s.getLocked(id)
	if err != nil {
		s.mu.Unlock()
		return models.ChatMessage{}, err
	}
	if conv.busy {
		s.mu.Unlock()
		return models.ChatMessage{}, fmt.Errorf("%w: a reply is still on its way", apperrors.ErrConflict)
	}
	conv.busy = true
	userMsg := models.ChatMessage{Author: models.ChatAuthorUser, Text: text}
	conv.transcript = append(conv.transcript, userMsg)
	conv.lastActiveAt = s.now()
	history := slices.Clone(conv.history)
	s.mu.Unlock()

	reply, err := s.ai.Converse(ctx, history, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	conv.busy = false
	conv.lastActiveAt = s.now()

	if err != nil {
		s.logger.Warn("Chat turn failed",
			zap.String("conversation_id", id.String()),
			zap.Error(err))
		apology := models.ChatMessage{Author: models.ChatAuthorBot, Text: apperrors.MessageChat}
		conv.transcript = append(conv.transcript, apology)
		return apology, err
	}

	botMsg := models.ChatMessage{Author: models.ChatAuthorBot, Text: reply}
	conv.transcript = append(conv.transcript, botMsg)
	conv.history = append(conv.history, userMsg, botMsg)
	return botMsg, nil
}

func (s *chatService) Transcript(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.getLocked(id)
	if err != nil {
		return nil, err
	}
	return conv.snapshot(), nil
}

func (s *chatService) End(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; ok {
		delete(s.conversations, id)
		s.logger.Debug("Conversation ended", zap.String("conversation_id", id.String()))
	}
	return nil
}

func (s *chatService) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.expireLocked(s.now())
			s.mu.Unlock()
		}
	}
}

// getLocked returns a live conversation, dropping it first if it went idle.
func (s *chatService) getLocked(id uuid.UUID) (*conversation, error) {
	conv, ok := s.conversations[id]
	if ok && s.expired(conv, s.now()) {
		delete(s.conversations, id)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, apperrors.ErrNotFound)
	}
	return conv, nil
}

func (s *chatService) expired(conv *conversation, now time.Time) bool {
	return s.idleTimeout > 0 && !conv.busy && now.Sub(conv.lastActiveAt) > s.idleTimeout
}

func (s *chatService) expireLocked(now time.Time) {
	expired := 0
	for id, conv := range s.conversations {
		if s.expired(conv, now) {
			delete(s.conversations, id)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug("Expired idle conversations", zap.Int("count", expired))
	}
}

// evictOldestLocked drops the least recently active idle conversation.
func (s *chatService) evictOldestLocked() {
	var oldest *conversation
	for _, conv := range s.conversations {
		if conv.busy {
			continue
		}
		if oldest == nil || conv.lastActiveAt.Before(oldest.lastActiveAt) {
			oldest = conv
		}
	}
	if oldest != nil {
		delete(s.conversations, oldest.id)
		s.logger.Info("Evicted conversation at capacity", zap.String("conversation_id", oldest.id.String()))
	}
}
