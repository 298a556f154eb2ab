package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/storage/memory"
)

func newTestSession(ttl time.Duration) *Session {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), memory.New(ttl))
}

func TestSession_Lifecycle(t *testing.T) {
	s := newTestSession(time.Minute)
	ctx := context.Background()

	pending, err := s.Pending(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.PendingNone, pending)

	require.NoError(t, s.Begin(ctx, 7, models.PendingDescription))
	pending, err = s.Pending(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.PendingDescription, pending)

	require.NoError(t, s.Begin(ctx, 7, models.PendingClose))
	pending, err = s.Pending(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.PendingClose, pending)

	other, err := s.Pending(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, models.PendingNone, other)

	require.NoError(t, s.Finish(ctx, 7))
	pending, err = s.Pending(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.PendingNone, pending)
}

func TestSession_ExpiredMeansNone(t *testing.T) {
	s := newTestSession(time.Minute)
	ctx := context.Background()

	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	require.NoError(t, s.Begin(ctx, 7, models.PendingDescription))

	pending, err := s.Pending(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, models.PendingNone, pending)
}

type brokenStorage struct{}

func (brokenStorage) SaveSession(context.Context, models.ChatSession) error { return errors.New("down") }
func (brokenStorage) Session(context.Context, int64) (models.ChatSession, error) {
	return models.ChatSession{}, errors.New("down")
}
func (brokenStorage) DeleteSession(context.Context, int64) error { return errors.New("down") }

func TestSession_StorageErrors(t *testing.T) {
	s := New(slog.New(slog.NewTextHandler(io.Discard, nil)), brokenStorage{})
	ctx := context.Background()

	assert.Error(t, s.Begin(ctx, 1, models.PendingClose))
	_, err := s.Pending(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, s.Finish(ctx, 1))
}
