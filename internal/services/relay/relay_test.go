package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/lib/metrics"
	"ghbridge/internal/services/relay/interfaces"
	"ghbridge/internal/services/relay/mocks"
	"ghbridge/internal/storage"
	"ghbridge/internal/storage/memory"
	"ghbridge/internal/storage/protected"
)

type sentMessage struct {
	requesterID int64
	text        string
}

type fakeNotifier struct {
	sent chan sentMessage
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan sentMessage, 16)}
}

func (f *fakeNotifier) Notify(_ context.Context, requesterID int64, text string) error {
	f.sent <- sentMessage{requesterID: requesterID, text: text}
	return f.err
}

type RelaySuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	provider *mocks.MockOAuthProvider
	decider  *mocks.MockMembershipDecider
	notifier *fakeNotifier
	store    *memory.Storage
	metrics  *metrics.Metrics
	relay    *Relay
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.provider = mocks.NewMockOAuthProvider(s.ctrl)
	s.decider = mocks.NewMockMembershipDecider(s.ctrl)
	s.notifier = newFakeNotifier()
	s.store = memory.New(0)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.relay = s.newRelay(s.store, protected.Plain{})
}

func (s *RelaySuite) TearDownTest() {
	s.relay.Wait()
	s.ctrl.Finish()
}

func (s *RelaySuite) newRelay(users interfaces.UserStorage, sealer interfaces.Sealer) *Relay {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(
		log,
		NewLedger(s.store, 10*time.Minute),
		NewCredentials(users, sealer),
		s.provider,
		s.decider,
		NewDispatcher(log, s.notifier, time.Second, s.metrics),
		s.metrics,
		"acme",
	)
}

func (s *RelaySuite) issue(requesterID int64) string {
	s.provider.EXPECT().AuthCodeURL(gomock.Any()).DoAndReturn(func(state string) string {
		return "https://github.com/login/oauth/authorize?state=" + state
	})
	ch, err := s.relay.RequestChallenge(context.Background(), requesterID)
	s.Require().NoError(err)
	s.Equal("https://github.com/login/oauth/authorize?state="+ch.State, ch.AuthURL)
	return ch.State
}

func (s *RelaySuite) nextMessage() sentMessage {
	select {
	case m := <-s.notifier.sent:
		return m
	case <-time.After(2 * time.Second):
		s.FailNow("no notification sent")
		return sentMessage{}
	}
}

func (s *RelaySuite) outcomes(outcome string) float64 {
	return testutil.ToFloat64(s.metrics.CallbackOutcomes.WithLabelValues(outcome))
}

func (s *RelaySuite) TestRequestChallengeRejectsNonPositiveRequester() {
	for _, id := range []int64{0, -5} {
		_, err := s.relay.RequestChallenge(context.Background(), id)
		s.ErrorIs(err, ErrInvalidRequester)
	}
	s.Equal(0.0, testutil.ToFloat64(s.metrics.ChallengesIssued))
}

func (s *RelaySuite) TestRedeemMalformed() {
	_, err := s.relay.Redeem(context.Background(), "", "state")
	s.ErrorIs(err, ErrMalformedCallback)
	_, err = s.relay.Redeem(context.Background(), "code", "")
	s.ErrorIs(err, ErrMalformedCallback)
	s.Equal(2.0, s.outcomes(metrics.OutcomeMalformed))
}

func (s *RelaySuite) TestRedeemUnknownState() {
	_, err := s.relay.Redeem(context.Background(), "code", "never-issued")
	s.ErrorIs(err, ErrInvalidState)
	s.ErrorIs(err, storage.ErrChallengeNotFound)
	s.Empty(s.notifier.sent)
}

func (s *RelaySuite) TestRedeemExpiredStateNotifiesRequester() {
	s.Require().NoError(s.store.SaveChallenge(context.Background(), models.Challenge{
		Token:       "stale",
		RequesterID: 42,
		CreatedAt:   time.Now().Add(-time.Hour),
	}))

	out, err := s.relay.Redeem(context.Background(), "code", "stale")
	s.ErrorIs(err, ErrInvalidState)
	s.ErrorIs(err, ErrChallengeExpired)
	s.Equal(int64(42), out.RequesterID)
	s.Equal(sentMessage{requesterID: 42, text: MsgLinkExpired}, s.nextMessage())
	s.Equal(1.0, s.outcomes(metrics.OutcomeInvalidState))

	_, err = s.relay.Redeem(context.Background(), "code", "stale")
	s.ErrorIs(err, storage.ErrChallengeNotFound)
	s.relay.Wait()
	s.Empty(s.notifier.sent)
}

func (s *RelaySuite) TestRedeemExchangeFailureConsumesChallenge() {
	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "bad-code").Return(models.ProviderToken{}, errors.New("bad_verification_code"))

	out, err := s.relay.Redeem(context.Background(), "bad-code", state)
	s.ErrorIs(err, ErrTokenExchangeFailed)
	s.Equal(int64(42), out.RequesterID)
	s.Equal(sentMessage{requesterID: 42, text: MsgTokenMissing}, s.nextMessage())

	_, err = s.relay.Redeem(context.Background(), "bad-code", state)
	s.ErrorIs(err, ErrInvalidState)
}

func (s *RelaySuite) TestRedeemIdentityFailure() {
	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "gho_x"}, nil)
	s.provider.EXPECT().Login(gomock.Any(), "gho_x").Return("", errors.New("401"))

	_, err := s.relay.Redeem(context.Background(), "code", state)
	s.ErrorIs(err, ErrIdentityFetchFailed)
	s.Equal(sentMessage{requesterID: 42, text: MsgIdentityFailed}, s.nextMessage())
	s.Equal(1.0, s.outcomes(metrics.OutcomeIdentityFailed))
}

func (s *RelaySuite) TestRedeemDenied() {
	ctx := context.Background()
	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "gho_x", Scopes: "read:org"}, nil)
	s.provider.EXPECT().Login(gomock.Any(), "gho_x").Return("octocat", nil)
	s.decider.EXPECT().IsMember(gomock.Any(), "gho_x", "octocat").Return(false)

	out, err := s.relay.Redeem(ctx, "code", state)
	s.Require().NoError(err)
	s.False(out.Granted)
	s.Equal("octocat", out.Login)

	msg := s.nextMessage()
	s.Equal(int64(42), msg.requesterID)
	s.Contains(msg.text, "octocat")
	s.Contains(msg.text, "acme")

	auth, err := s.relay.QueryAuthorization(ctx, 42)
	s.Require().NoError(err)
	s.False(auth.Authorized)
	s.Empty(auth.Login)
}

func (s *RelaySuite) TestRedeemGranted() {
	ctx := context.Background()
	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "gho_x", Scopes: "read:org"}, nil)
	s.provider.EXPECT().Login(gomock.Any(), "gho_x").Return("octocat", nil)
	s.decider.EXPECT().IsMember(gomock.Any(), "gho_x", "octocat").Return(true)

	out, err := s.relay.Redeem(ctx, "code", state)
	s.Require().NoError(err)
	s.True(out.Granted)
	s.Equal(int64(42), out.RequesterID)

	msg := s.nextMessage()
	s.Equal(int64(42), msg.requesterID)
	s.Contains(msg.text, "octocat")

	auth, err := s.relay.QueryAuthorization(ctx, 42)
	s.Require().NoError(err)
	s.True(auth.Authorized)
	s.Equal("octocat", auth.Login)

	u, err := s.store.User(ctx, 42)
	s.Require().NoError(err)
	s.Equal("gho_x", u.AccessToken)
	s.Equal("read:org", u.Scopes)
	s.Equal(1.0, s.outcomes(metrics.OutcomeGranted))
}

func (s *RelaySuite) TestRedeemGrantedReplacesPreviousLogin() {
	ctx := context.Background()
	for _, login := range []string{"first", "second"} {
		state := s.issue(7)
		s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "tok-" + login}, nil)
		s.provider.EXPECT().Login(gomock.Any(), "tok-"+login).Return(login, nil)
		s.decider.EXPECT().IsMember(gomock.Any(), "tok-"+login, login).Return(true)

		_, err := s.relay.Redeem(ctx, "code", state)
		s.Require().NoError(err)
		s.nextMessage()
	}

	auth, err := s.relay.QueryAuthorization(ctx, 7)
	s.Require().NoError(err)
	s.Equal("second", auth.Login)
}

func (s *RelaySuite) TestRedeemSealsStoredToken() {
	ctx := context.Background()
	sealer, err := protected.NewSecretbox(base64.StdEncoding.EncodeToString([]byte(gofakeit.LetterN(32))))
	s.Require().NoError(err)
	s.relay = s.newRelay(s.store, sealer)

	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "gho_secret"}, nil)
	s.provider.EXPECT().Login(gomock.Any(), "gho_secret").Return("octocat", nil)
	s.decider.EXPECT().IsMember(gomock.Any(), "gho_secret", "octocat").Return(true)

	_, err = s.relay.Redeem(ctx, "code", state)
	s.Require().NoError(err)
	s.nextMessage()

	raw, err := s.store.User(ctx, 42)
	s.Require().NoError(err)
	s.NotEqual("gho_secret", raw.AccessToken)

	u, err := s.relay.credentials.Lookup(ctx, 42)
	s.Require().NoError(err)
	s.Equal("gho_secret", u.AccessToken)
}

func (s *RelaySuite) TestRedeemStoreFailureIsInternal() {
	users := mocks.NewMockUserStorage(s.ctrl)
	s.relay = s.newRelay(users, protected.Plain{})

	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "gho_x"}, nil)
	s.provider.EXPECT().Login(gomock.Any(), "gho_x").Return("octocat", nil)
	s.decider.EXPECT().IsMember(gomock.Any(), "gho_x", "octocat").Return(true)
	users.EXPECT().SaveUser(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

	_, err := s.relay.Redeem(context.Background(), "code", state)
	s.Require().Error(err)
	for _, flowErr := range []error{ErrMalformedCallback, ErrInvalidState, ErrTokenExchangeFailed, ErrIdentityFetchFailed} {
		s.NotErrorIs(err, flowErr)
	}
	s.Empty(s.notifier.sent)
	s.Equal(1.0, s.outcomes(metrics.OutcomeInternalError))
}

func (s *RelaySuite) TestNotificationFailureDoesNotChangeOutcome() {
	s.notifier.err = errors.New("telegram down")
	state := s.issue(42)
	s.provider.EXPECT().Exchange(gomock.Any(), "code").Return(models.ProviderToken{AccessToken: "gho_x"}, nil)
	s.provider.EXPECT().Login(gomock.Any(), "gho_x").Return("octocat", nil)
	s.decider.EXPECT().IsMember(gomock.Any(), "gho_x", "octocat").Return(true)

	out, err := s.relay.Redeem(context.Background(), "code", state)
	s.Require().NoError(err)
	s.True(out.Granted)

	s.relay.Wait()
	s.Equal(1.0, testutil.ToFloat64(s.metrics.NotificationFailures))
}

func (s *RelaySuite) TestQueryAuthorizationUnknownRequester() {
	auth, err := s.relay.QueryAuthorization(context.Background(), 99)
	s.Require().NoError(err)
	s.False(auth.Authorized)
	s.Empty(auth.Login)

	_, err = s.relay.QueryAuthorization(context.Background(), 0)
	s.ErrorIs(err, ErrInvalidRequester)
}

func (s *RelaySuite) TestJanitorPurgesAndStops() {
	ctx, cancel := context.WithCancel(context.Background())
	s.Require().NoError(s.store.SaveChallenge(ctx, models.Challenge{
		Token:       "stale",
		RequesterID: 1,
		CreatedAt:   time.Now().Add(-time.Hour),
	}))

	done := make(chan error, 1)
	go func() { done <- s.relay.RunJanitor(ctx, 10*time.Millisecond) }()

	s.Eventually(func() bool {
		return testutil.ToFloat64(s.metrics.ChallengesPurged) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("janitor did not stop")
	}
}
