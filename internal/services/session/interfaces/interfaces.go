package interfaces

import (
	"context"

	"ghbridge/internal/domain/models"
)

// SessionStorage keeps one chat session per requester. Session returns
// storage.ErrSessionNotFound for absent or expired sessions.
type SessionStorage interface {
	SaveSession(ctx context.Context, s models.ChatSession) error
	Session(ctx context.Context, requesterID int64) (models.ChatSession, error)
	DeleteSession(ctx context.Context, requesterID int64) error
}
