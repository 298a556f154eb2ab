package relay

//go:generate mockgen -source=interfaces/interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/lib/metrics"
	"ghbridge/internal/services/relay/interfaces"
	"ghbridge/internal/storage"
)

// Messages sent to the requester over the chat side-channel.
const (
	MsgTokenMissing   = "GitHub authorization failed (no token)."
	MsgIdentityFailed = "Could not fetch your GitHub profile."
	MsgLinkExpired    = "⌛ Login link expired. Use /login to get a new one."
	msgGranted        = "✅ Success: GitHub %s is authorized."
	msgDenied         = "⚠️ GitHub %s is not a member of %s. Access denied."
)

// IssuedChallenge is what a requester needs to start the provider flow.
type IssuedChallenge struct {
	AuthURL string
	State   string
}

// Outcome is the result of a completed redemption.
type Outcome struct {
	Granted     bool
	Login       string
	RequesterID int64
}

// Authorization is the answer to "is this requester allowed in".
type Authorization struct {
	Authorized bool
	Login      string
}

type Relay struct {
	log         *slog.Logger
	ledger      *Ledger
	credentials *Credentials
	provider    interfaces.OAuthProvider
	decider     interfaces.MembershipDecider
	dispatcher  *Dispatcher
	metrics     *metrics.Metrics
	org         string
	now         func() time.Time
}

// New creates the relay service. org is only used in the denial message.
func New(
	log *slog.Logger,
	ledger *Ledger,
	credentials *Credentials,
	provider interfaces.OAuthProvider,
	decider interfaces.MembershipDecider,
	dispatcher *Dispatcher,
	m *metrics.Metrics,
	org string,
) *Relay {
	return &Relay{
		log:         log,
		ledger:      ledger,
		credentials: credentials,
		provider:    provider,
		decider:     decider,
		dispatcher:  dispatcher,
		metrics:     m,
		org:         org,
		now:         time.Now,
	}
}

// RequestChallenge issues a challenge for requesterID and builds the provider
// authorization URL around it.
// Returns ErrInvalidRequester if requesterID is not positive.
func (r *Relay) RequestChallenge(ctx context.Context, requesterID int64) (IssuedChallenge, error) {
	const op = "relay.RequestChallenge"

	if requesterID <= 0 {
		return IssuedChallenge{}, ErrInvalidRequester
	}
	state, err := r.ledger.Create(ctx, requesterID)
	if err != nil {
		return IssuedChallenge{}, fmt.Errorf("%s: %w", op, err)
	}
	r.metrics.IncrementChallengesIssued()
	r.log.With(slog.String("op", op)).Info("challenge issued", slog.Int64("requester_id", requesterID))

	return IssuedChallenge{
		AuthURL: r.provider.AuthCodeURL(state),
		State:   state,
	}, nil
}

// Redeem completes the provider callback.
//
// Flow errors (ErrMalformedCallback, ErrInvalidState, ErrTokenExchangeFailed,
// ErrIdentityFetchFailed) end the attempt; the challenge is consumed either
// way. A denial is not an error: it returns Outcome{Granted: false}. Any other
// error is an internal failure.
func (r *Relay) Redeem(ctx context.Context, code, state string) (Outcome, error) {
	const op = "relay.Redeem"

	start := time.Now()
	defer r.metrics.ObserveRedeem(start)

	log := r.log.With(slog.String("op", op))

	if code == "" || state == "" {
		r.metrics.IncrementOutcome(metrics.OutcomeMalformed)
		return Outcome{}, ErrMalformedCallback
	}

	requesterID, err := r.ledger.Redeem(ctx, state)
	if err != nil {
		if errors.Is(err, storage.ErrChallengeNotFound) || errors.Is(err, ErrChallengeExpired) {
			r.metrics.IncrementOutcome(metrics.OutcomeInvalidState)
			log.Info("challenge rejected",
				slog.Int64("requester_id", requesterID),
				slog.String("reason", err.Error()),
			)
			if requesterID > 0 {
				r.dispatcher.Dispatch(ctx, requesterID, MsgLinkExpired)
			}
			return Outcome{RequesterID: requesterID}, fmt.Errorf("%s: %w: %w", op, ErrInvalidState, err)
		}
		r.metrics.IncrementOutcome(metrics.OutcomeInternalError)
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	log = log.With(slog.Int64("requester_id", requesterID))
	log.Info("code received")

	token, err := r.provider.Exchange(ctx, code)
	if err != nil {
		r.metrics.IncrementOutcome(metrics.OutcomeExchangeFailed)
		log.Warn("token exchange failed", slog.String("error", err.Error()))
		r.dispatcher.Dispatch(ctx, requesterID, MsgTokenMissing)
		return Outcome{RequesterID: requesterID}, fmt.Errorf("%s: %w", op, ErrTokenExchangeFailed)
	}
	log.Info("token exchanged")

	login, err := r.provider.Login(ctx, token.AccessToken)
	if err != nil {
		r.metrics.IncrementOutcome(metrics.OutcomeIdentityFailed)
		log.Warn("identity fetch failed", slog.String("error", err.Error()))
		r.dispatcher.Dispatch(ctx, requesterID, MsgIdentityFailed)
		return Outcome{RequesterID: requesterID}, fmt.Errorf("%s: %w", op, ErrIdentityFetchFailed)
	}
	log = log.With(slog.String("login", login))
	log.Info("identity fetched")

	outcome := Outcome{Login: login, RequesterID: requesterID}
	if !r.decider.IsMember(ctx, token.AccessToken, login) {
		r.metrics.IncrementOutcome(metrics.OutcomeDenied)
		log.Info("access denied")
		r.dispatcher.Dispatch(ctx, requesterID, fmt.Sprintf(msgDenied, login, r.org))
		return outcome, nil
	}

	err = r.credentials.Upsert(ctx, models.AuthorizedUser{
		RequesterID:   requesterID,
		ProviderLogin: login,
		AccessToken:   token.AccessToken,
		Scopes:        token.Scopes,
		CreatedAt:     r.now().UTC(),
	})
	if err != nil {
		r.metrics.IncrementOutcome(metrics.OutcomeInternalError)
		return outcome, fmt.Errorf("%s: %w", op, err)
	}

	r.metrics.IncrementOutcome(metrics.OutcomeGranted)
	log.Info("access granted")
	r.dispatcher.Dispatch(ctx, requesterID, fmt.Sprintf(msgGranted, login))

	outcome.Granted = true
	return outcome, nil
}

// QueryAuthorization reports whether requesterID has a stored authorization.
// Returns ErrInvalidRequester if requesterID is not positive.
func (r *Relay) QueryAuthorization(ctx context.Context, requesterID int64) (Authorization, error) {
	const op = "relay.QueryAuthorization"

	if requesterID <= 0 {
		return Authorization{}, ErrInvalidRequester
	}
	u, err := r.credentials.Lookup(ctx, requesterID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return Authorization{}, nil
		}
		return Authorization{}, fmt.Errorf("%s: %w", op, err)
	}
	return Authorization{Authorized: u.ProviderLogin != "", Login: u.ProviderLogin}, nil
}

// RunJanitor purges expired challenges every interval until ctx is done.
func (r *Relay) RunJanitor(ctx context.Context, interval time.Duration) error {
	const op = "relay.RunJanitor"

	log := r.log.With(slog.String("op", op))
	if interval <= 0 {
		log.Info("challenge janitor disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.ledger.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Error("failed to purge challenges", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				r.metrics.AddChallengesPurged(n)
				log.Info("expired challenges purged", slog.Int64("count", n))
			}
		}
	}
}

// Wait stops the notification dispatcher and blocks until pending
// notifications are delivered or given up.
func (r *Relay) Wait() {
	r.dispatcher.Wait()
}
