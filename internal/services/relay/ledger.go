package relay

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/services/relay/interfaces"
)

// tokenBytes is the amount of randomness in a challenge token.
const tokenBytes = 32

// Ledger issues and redeems single-use challenges.
type Ledger struct {
	storage interfaces.ChallengeStorage
	ttl     time.Duration
	now     func() time.Time
}

// NewLedger creates a ledger whose challenges are valid for ttl. A
// non-positive ttl disables expiry.
func NewLedger(storage interfaces.ChallengeStorage, ttl time.Duration) *Ledger {
	return &Ledger{
		storage: storage,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create stores a fresh challenge bound to requesterID and returns its token.
func (l *Ledger) Create(ctx context.Context, requesterID int64) (string, error) {
	const op = "relay.Ledger.Create"

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	err = l.storage.SaveChallenge(ctx, models.Challenge{
		Token:       token,
		RequesterID: requesterID,
		CreatedAt:   l.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Redeem consumes the challenge and returns the requester it was issued for.
// The challenge is gone afterwards whatever the result.
// Returns storage.ErrChallengeNotFound, or ErrChallengeExpired together with
// the requester the stale challenge was issued for.
func (l *Ledger) Redeem(ctx context.Context, token string) (int64, error) {
	const op = "relay.Ledger.Redeem"

	c, err := l.storage.PopChallenge(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if c.ExpiredAt(l.now(), l.ttl) {
		return c.RequesterID, fmt.Errorf("%s: %w", op, ErrChallengeExpired)
	}
	return c.RequesterID, nil
}

// PurgeExpired removes every challenge that can no longer be redeemed.
func (l *Ledger) PurgeExpired(ctx context.Context) (int64, error) {
	const op = "relay.Ledger.PurgeExpired"

	if l.ttl <= 0 {
		return 0, nil
	}
	n, err := l.storage.PurgeChallenges(ctx, l.now().Add(-l.ttl))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
