//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/storage"
	"ghbridge/internal/storage/postgres"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	store     *postgres.Storage
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ghbridge"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.Require().NoError(postgres.Migrate(connString))
	// second run must be a no-op
	s.Require().NoError(postgres.Migrate(connString))

	s.store, err = postgres.New(ctx, connString)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}
	if s.container != nil {
		s.Require().NoError(testcontainers.TerminateContainer(s.container))
	}
}

func (s *PostgresStoreSuite) TestChallengeRoundTrip() {
	ctx := context.Background()
	c := models.Challenge{
		Token:       gofakeit.UUID(),
		RequesterID: 42,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.SaveChallenge(ctx, c))

	got, err := s.store.PopChallenge(ctx, c.Token)
	s.Require().NoError(err)
	s.Equal(c.RequesterID, got.RequesterID)
	s.True(c.CreatedAt.Equal(got.CreatedAt))

	_, err = s.store.PopChallenge(ctx, c.Token)
	s.ErrorIs(err, storage.ErrChallengeNotFound)
}

func (s *PostgresStoreSuite) TestSaveChallengeReplacesSameToken() {
	ctx := context.Background()
	token := gofakeit.UUID()
	s.Require().NoError(s.store.SaveChallenge(ctx, models.Challenge{Token: token, RequesterID: 1, CreatedAt: time.Now()}))
	s.Require().NoError(s.store.SaveChallenge(ctx, models.Challenge{Token: token, RequesterID: 2, CreatedAt: time.Now()}))

	got, err := s.store.PopChallenge(ctx, token)
	s.Require().NoError(err)
	s.Equal(int64(2), got.RequesterID)
}

// TestConcurrentPop verifies exactly one of many concurrent redemptions wins.
func (s *PostgresStoreSuite) TestConcurrentPop() {
	ctx := context.Background()
	token := gofakeit.UUID()
	s.Require().NoError(s.store.SaveChallenge(ctx, models.Challenge{Token: token, RequesterID: 7, CreatedAt: time.Now()}))

	const goroutines = 50
	var wins, misses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.PopChallenge(ctx, token)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, storage.ErrChallengeNotFound):
				misses.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(goroutines-1), misses.Load())
}

func (s *PostgresStoreSuite) TestPurgeChallenges() {
	ctx := context.Background()
	now := time.Now()
	old := models.Challenge{Token: gofakeit.UUID(), RequesterID: 1, CreatedAt: now.Add(-time.Hour)}
	fresh := models.Challenge{Token: gofakeit.UUID(), RequesterID: 1, CreatedAt: now}
	s.Require().NoError(s.store.SaveChallenge(ctx, old))
	s.Require().NoError(s.store.SaveChallenge(ctx, fresh))

	n, err := s.store.PurgeChallenges(ctx, now.Add(-time.Minute))
	s.Require().NoError(err)
	s.GreaterOrEqual(n, int64(1))

	_, err = s.store.PopChallenge(ctx, old.Token)
	s.ErrorIs(err, storage.ErrChallengeNotFound)
	_, err = s.store.PopChallenge(ctx, fresh.Token)
	s.NoError(err)
}

func (s *PostgresStoreSuite) TestSaveUserUpserts() {
	ctx := context.Background()
	id := gofakeit.Int64()
	if id < 0 {
		id = -id
	}

	_, err := s.store.User(ctx, id)
	s.ErrorIs(err, storage.ErrUserNotFound)

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.SaveUser(ctx, models.AuthorizedUser{
			RequesterID:   id,
			ProviderLogin: gofakeit.Username(),
			AccessToken:   gofakeit.UUID(),
			Scopes:        "read:org",
			CreatedAt:     time.Now(),
		}))
	}
	last := models.AuthorizedUser{
		RequesterID:   id,
		ProviderLogin: "octocat",
		AccessToken:   "gho_last",
		Scopes:        "read:org",
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.SaveUser(ctx, last))

	got, err := s.store.User(ctx, id)
	s.Require().NoError(err)
	s.Equal(last.ProviderLogin, got.ProviderLogin)
	s.Equal(last.AccessToken, got.AccessToken)
	s.Equal(last.Scopes, got.Scopes)
}
