package memory

import (
	"context"
	"sync"
	"time"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/storage"
)

// Storage keeps challenges, authorized users and chat sessions in process
// memory. It backs the local environment and tests.
type Storage struct {
	mu         sync.Mutex
	challenges map[string]models.Challenge
	users      map[int64]models.AuthorizedUser
	sessions   map[int64]models.ChatSession
	sessionTTL time.Duration
	now        func() time.Time
}

// New constructs an empty store. Sessions older than sessionTTL are treated
// as absent; a non-positive sessionTTL keeps them forever.
func New(sessionTTL time.Duration) *Storage {
	return &Storage{
		challenges: make(map[string]models.Challenge),
		users:      make(map[int64]models.AuthorizedUser),
		sessions:   make(map[int64]models.ChatSession),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (s *Storage) Ping(_ context.Context) error {
	return nil
}

func (s *Storage) SaveChallenge(_ context.Context, c models.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.Token] = c
	return nil
}

func (s *Storage) PopChallenge(_ context.Context, token string) (models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.challenges[token]
	if !ok {
		return models.Challenge{}, storage.ErrChallengeNotFound
	}
	delete(s.challenges, token)
	return c, nil
}

func (s *Storage) PurgeChallenges(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, c := range s.challenges {
		if c.CreatedAt.Before(before) {
			delete(s.challenges, token)
			n++
		}
	}
	return n, nil
}

func (s *Storage) SaveUser(_ context.Context, u models.AuthorizedUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.RequesterID] = u
	return nil
}

func (s *Storage) User(_ context.Context, requesterID int64) (models.AuthorizedUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[requesterID]
	if !ok {
		return models.AuthorizedUser{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *Storage) SaveSession(_ context.Context, cs models.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[cs.RequesterID] = cs
	return nil
}

func (s *Storage) Session(_ context.Context, requesterID int64) (models.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.sessions[requesterID]
	if !ok {
		return models.ChatSession{}, storage.ErrSessionNotFound
	}
	if s.sessionTTL > 0 && s.now().Sub(cs.UpdatedAt) > s.sessionTTL {
		delete(s.sessions, requesterID)
		return models.ChatSession{}, storage.ErrSessionNotFound
	}
	return cs, nil
}

func (s *Storage) DeleteSession(_ context.Context, requesterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, requesterID)
	return nil
}
