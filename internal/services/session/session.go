package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/services/session/interfaces"
	"ghbridge/internal/storage"
)

// Session tracks which multi-step chat command a user is in the middle of.
type Session struct {
	log     *slog.Logger
	storage interfaces.SessionStorage
	now     func() time.Time
}

func New(log *slog.Logger, storage interfaces.SessionStorage) *Session {
	return &Session{
		log:     log,
		storage: storage,
		now:     time.Now,
	}
}

// Begin records pending as the requester's current action, replacing any
// previous one.
func (s *Session) Begin(ctx context.Context, requesterID int64, pending models.PendingAction) error {
	const op = "session.Begin"

	err := s.storage.SaveSession(ctx, models.ChatSession{
		RequesterID: requesterID,
		Pending:     pending,
		UpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("session started",
		slog.String("op", op),
		slog.Int64("requester_id", requesterID),
		slog.String("pending", string(pending)),
	)
	return nil
}

// Pending returns the current action, or PendingNone when there is none.
func (s *Session) Pending(ctx context.Context, requesterID int64) (models.PendingAction, error) {
	const op = "session.Pending"

	cs, err := s.storage.Session(ctx, requesterID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return models.PendingNone, nil
		}
		return models.PendingNone, fmt.Errorf("%s: %w", op, err)
	}
	return cs.Pending, nil
}

// Finish clears the current action.
func (s *Session) Finish(ctx context.Context, requesterID int64) error {
	const op = "session.Finish"

	if err := s.storage.DeleteSession(ctx, requesterID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
