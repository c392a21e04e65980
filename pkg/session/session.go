// Package session keeps the chat conversation handle in a signed cookie.
package session

import (
	"crypto/sha256"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/greenthumb-app/greenthumb/pkg/config"
)

const keyConversationID = "conversation_id"

// ErrNoConversation means the request carries no conversation handle.
var ErrNoConversation = errors.New("no chat conversation in session")

// Manager reads and writes the conversation id cookie.
type Manager struct {
	store *sessions.CookieStore
	name  string
}

// NewManager creates a cookie-backed manager.
//
// The secret can be any passphrase; it is SHA-256 hashed to derive a 32-byte
// signing key. Without a secret a random key is used, which is enough because
// conversations live in memory and do not survive a restart either.
func NewManager(cfg *config.SessionConfig) *Manager {
	key := sha256.Sum256([]byte(cfg.Secret))
	if cfg.Secret == "" {
		key = sha256.Sum256(securecookie.GenerateRandomKey(32))
	}

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{store: store, name: cfg.CookieName}
}

// ConversationID returns the conversation handle stored in the request cookie.
func (m *Manager) ConversationID(r *http.Request) (uuid.UUID, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		// A cookie signed with an old secret is treated as absent.
		return uuid.Nil, ErrNoConversation
	}

	raw, ok := sess.Values[keyConversationID].(string)
	if !ok {
		return uuid.Nil, ErrNoConversation
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrNoConversation
	}
	return id, nil
}

// SetConversationID stores id in the response cookie.
func (m *Manager) SetConversationID(w http.ResponseWriter, r *http.Request, id uuid.UUID) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[keyConversationID] = id.String()
	return sess.Save(r, w)
}

// Clear expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, keyConversationID)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
