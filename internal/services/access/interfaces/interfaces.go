package interfaces

import "context"

// MembershipProvider answers membership questions about the owner of an
// access token.
type MembershipProvider interface {
	Organizations(ctx context.Context, accessToken string) ([]string, error)
	TeamMembership(ctx context.Context, accessToken, org, team, login string) (bool, error)
}
