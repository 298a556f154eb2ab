package access

//go:generate mockgen -source=interfaces/interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"ghbridge/internal/lib/utilities"
	"ghbridge/internal/services/access/interfaces"
)

// Access decides whether an identity belongs to the configured organization
// or team.
type Access struct {
	log      *slog.Logger
	provider interfaces.MembershipProvider
	org      string
	team     string
}

func New(log *slog.Logger, provider interfaces.MembershipProvider, org, team string) *Access {
	return &Access{
		log:      log,
		provider: provider,
		org:      org,
		team:     team,
	}
}

// IsMember returns true if login is in the configured organization
// (case-insensitive) or, failing that, holds a membership in the configured
// team. Provider errors are logged and count as "not a member".
func (a *Access) IsMember(ctx context.Context, accessToken, login string) bool {
	const op = "access.IsMember"

	log := a.log.With(slog.String("op", op), slog.String("login", login))

	orgs, err := a.provider.Organizations(ctx, accessToken)
	if err != nil {
		log.Warn("failed to fetch organizations", slog.String("error", err.Error()))
		orgs = nil
	}
	if a.org != "" && slices.Contains(utilities.Map(orgs, strings.ToLower), strings.ToLower(a.org)) {
		log.Debug("organization membership found", slog.String("org", a.org))
		return true
	}

	if a.org == "" || a.team == "" {
		return false
	}
	ok, err := a.provider.TeamMembership(ctx, accessToken, a.org, a.team, login)
	if err != nil {
		log.Warn("failed to fetch team membership",
			slog.String("team", a.team),
			slog.String("error", err.Error()),
		)
		return false
	}
	if ok {
		log.Debug("team membership found", slog.String("team", a.team))
	}
	return ok
}
