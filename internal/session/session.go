// Package session keeps per-browser-session conversation state. Each
// session owns one independent message history per tab; histories live for
// the session and are never persisted.
package session

import (
	"sync"

	"github.com/google/uuid"

	"rag-portal/internal/domain"
)

// Tab owns the ordered message history of one conversation tab. It is
// mutated only through the append operations below; Messages returns a
// copy so callers cannot bypass them.
type Tab struct {
	key      domain.TabKey
	messages []domain.Message
}

// NewTab creates an empty tab.
func NewTab(key domain.TabKey) *Tab {
	return &Tab{key: key}
}

// Key returns the tab's key.
func (t *Tab) Key() domain.TabKey { return t.key }

// Len returns the number of messages in the tab.
func (t *Tab) Len() int { return len(t.messages) }

// Messages returns a copy of the tab's history in order.
func (t *Tab) Messages() []domain.Message {
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Append adds an already-built message to the history.
func (t *Tab) Append(msg domain.Message) {
	t.messages = append(t.messages, msg)
}

// AppendUserTurn adds a plain text user turn.
func (t *Tab) AppendUserTurn(text string) {
	t.Append(domain.NewTextMessage(domain.RoleUser, text))
}

// AppendAssistantTurn adds a plain text assistant turn.
func (t *Tab) AppendAssistantTurn(text string) {
	t.Append(domain.NewTextMessage(domain.RoleAssistant, text))
}

// LastRole returns the role of the last message, or "" for an empty tab.
func (t *Tab) LastRole() domain.Role {
	if len(t.messages) == 0 {
		return ""
	}
	return t.messages[len(t.messages)-1].Role
}

// Session holds the three tabs of one browser session.
type Session struct {
	ID   string
	tabs map[domain.TabKey]*Tab
}

// Tab returns the session's tab for key, or nil for an unknown key.
func (s *Session) Tab(key domain.TabKey) *Tab {
	return s.tabs[key]
}

func newSession(id string) *Session {
	tabs := make(map[domain.TabKey]*Tab, len(domain.TabKeys))
	for _, k := range domain.TabKeys {
		tabs[k] = NewTab(k)
	}
	return &Session{ID: id, tabs: tabs}
}

// Store is an in-memory session registry. Only the registry map is shared
// between requests; each session's history belongs to a single browser and
// is not mutated concurrently.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session with the given id, creating a new one (with a
// generated id) when id is empty or unknown.
func (s *Store) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			return sess
		}
	}
	sess := newSession(uuid.NewString())
	s.sessions[sess.ID] = sess
	return sess
}
