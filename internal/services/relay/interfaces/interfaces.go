package interfaces

import (
	"context"
	"time"

	"ghbridge/internal/domain/models"
)

// ChallengeStorage persists single-use challenges. PopChallenge must read and
// delete in one atomic step.
type ChallengeStorage interface {
	SaveChallenge(ctx context.Context, c models.Challenge) error
	PopChallenge(ctx context.Context, token string) (models.Challenge, error)
	PurgeChallenges(ctx context.Context, before time.Time) (int64, error)
}

// UserStorage keeps the latest authorization per requester.
type UserStorage interface {
	SaveUser(ctx context.Context, u models.AuthorizedUser) error
	User(ctx context.Context, requesterID int64) (models.AuthorizedUser, error)
}

// OAuthProvider runs the provider side of the web flow.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.ProviderToken, error)
	Login(ctx context.Context, accessToken string) (string, error)
}

// MembershipDecider makes the binary authorization decision.
type MembershipDecider interface {
	IsMember(ctx context.Context, accessToken, login string) bool
}

// Notifier delivers a text message to a requester over the chat side-channel.
type Notifier interface {
	Notify(ctx context.Context, requesterID int64, text string) error
}

// Sealer protects access tokens at rest.
type Sealer interface {
	Seal(ctx context.Context, plaintext string) (string, error)
	Open(ctx context.Context, sealed string) (string, error)
}
