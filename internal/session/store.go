// Package session keeps per-conversation wizard state between
// independent inbound events. Any worker can pick up any event; the
// store is the only session affinity.
package session

import (
	"sync"

	"github.com/shopspring/decimal"
)

// State is the wizard step a conversation is currently waiting on.
type State string

const (
	StateIdle                State = "idle"
	StateAwaitingCategory    State = "awaiting_category"
	StateAwaitingSubcategory State = "awaiting_subcategory"
	StateAwaitingAmount      State = "awaiting_amount"
	StateAwaitingComment     State = "awaiting_comment"
)

// Key identifies one conversation.
type Key struct {
	UserID int64
	ChatID int64
}

// Data accumulates wizard input. SubcategoryID 0 records "no
// subcategory" explicitly; taxonomy ids start at 1 so 0 is never a
// real id. Generation is the taxonomy cache generation the category
// ids were taken from.
type Data struct {
	CategoryID    int
	SubcategoryID int
	Amount        decimal.Decimal
	Comment       string
	Generation    uint64
}

// Session is a snapshot of one conversation's wizard progress.
type Session struct {
	State State
	Data  Data
}

// Patch carries partial updates for Set; nil fields are left as-is.
type Patch struct {
	CategoryID    *int
	SubcategoryID *int
	Amount        *decimal.Decimal
	Comment       *string
	Generation    *uint64
}

// Store maps conversations to sessions. All operations on one key are
// linearizable; callers get value copies, never shared pointers.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[Key]*Session)}
}

// Get returns a copy of the session for the conversation, or an idle
// zero session when none exists.
func (s *Store) Get(userID, chatID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[Key{UserID: userID, ChatID: chatID}]; ok {
		return *sess, true
	}
	return Session{State: StateIdle}, false
}

// Set overwrites the state and merges the patch into the session data,
// creating the session if absent.
func (s *Store) Set(userID, chatID int64, state State, patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{UserID: userID, ChatID: chatID}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &Session{}
		s.sessions[key] = sess
	}

	sess.State = state
	if patch.CategoryID != nil {
		sess.Data.CategoryID = *patch.CategoryID
	}
	if patch.SubcategoryID != nil {
		sess.Data.SubcategoryID = *patch.SubcategoryID
	}
	if patch.Amount != nil {
		sess.Data.Amount = *patch.Amount
	}
	if patch.Comment != nil {
		sess.Data.Comment = *patch.Comment
	}
	if patch.Generation != nil {
		sess.Data.Generation = *patch.Generation
	}
}

// Delete removes the session; a missing session is a no-op.
func (s *Store) Delete(userID, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, Key{UserID: userID, ChatID: chatID})
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
