// Package companion holds the one active chat session per running instance
// and drives the session store: every mutation is immediately persisted,
// and failed operations leave the in-memory state untouched.
package companion

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lbj0223/AI/internal/models"
	"github.com/lbj0223/AI/internal/session"
)

// Profile defaults applied to every fresh session.
const (
	DefaultNickname = "小甜甜"
	DefaultNature   = "活泼开朗的东北姑娘"
)

// Service owns the active session. All operations are synchronous; the
// mutex only guards against overlapping HTTP requests from the same UI.
type Service struct {
	store *session.Store

	mu     sync.Mutex
	active *models.Session
}

// NewService activates a fresh empty session backed by store.
func NewService(store *session.Store) *Service {
	return &Service{
		store:  store,
		active: freshSession(DefaultNickname, DefaultNature),
	}
}

func freshSession(nickname, nature string) *models.Session {
	return &models.Session{
		ID:       session.NewID(),
		Nickname: nickname,
		Nature:   nature,
		Messages: []models.Message{},
	}
}

// Active returns a snapshot of the current session.
func (s *Service) Active() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// Sessions lists persisted session ids, newest first.
func (s *Service) Sessions() ([]string, error) {
	return s.store.List()
}

// StartNew saves the outgoing session and, when it holds any messages,
// activates a newly created empty session carrying the same profile.
func (s *Service) StartNew() (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(s.active); err != nil {
		return nil, err
	}
	if len(s.active.Messages) == 0 {
		return s.active.Clone(), nil
	}

	next := freshSession(s.active.Nickname, s.active.Nature)
	if err := s.store.Save(next); err != nil {
		return nil, err
	}
	s.active = next
	return s.active.Clone(), nil
}

// Open loads the session with the given id and replaces the entire active
// state with it. On any failure the previous active session stays in place.
func (s *Service) Open(id string) (*models.Session, error) {
	loaded, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = loaded
	return s.active.Clone(), nil
}

// Delete removes the persisted session. Deleting the active session
// replaces it with a brand-new empty one in the same step, so the caller
// is never left pointing at a nonexistent id.
func (s *Service) Delete(id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(id); err != nil {
		return nil, err
	}
	if id == s.active.ID {
		s.active = freshSession(s.active.Nickname, s.active.Nature)
	}
	return s.active.Clone(), nil
}

// SetProfile updates the partner nickname and nature and persists the
// session. Empty values keep the current ones, mirroring the sidebar form.
func (s *Service) SetProfile(nickname, nature string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.active.Clone()
	if nickname != "" {
		candidate.Nickname = nickname
	}
	if nature != "" {
		candidate.Nature = nature
	}
	if err := s.store.Save(candidate); err != nil {
		return nil, err
	}
	s.active = candidate
	return s.active.Clone(), nil
}

// AppendMessage appends one turn to the active session and persists it.
func (s *Service) AppendMessage(role models.Role, content string) (*models.Session, error) {
	if role != models.RoleUser && role != models.RoleAssistant {
		return nil, fmt.Errorf("invalid message role %q", role)
	}
	if content == "" {
		return nil, errors.New("message content is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := s.active.Clone()
	candidate.Messages = append(candidate.Messages, models.Message{Role: role, Content: content})
	if err := s.store.Save(candidate); err != nil {
		return nil, err
	}
	s.active = candidate
	return s.active.Clone(), nil
}
