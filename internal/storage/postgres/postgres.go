package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/storage"
)

// Storage keeps challenges and authorized users in postgres.
// Every mutation is a single statement, so row-level atomicity comes from
// the database.
type Storage struct {
	dbPool *pgxpool.Pool
}

// New opens a pool for connString and checks it with a ping.
func New(ctx context.Context, connString string) (*Storage, error) {
	const op = "storage.postgres.New"

	dbPool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	return &Storage{dbPool: dbPool}, nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool) *Storage {
	return &Storage{dbPool: pool}
}

// Close ends the pool.
func (s *Storage) Close() {
	s.dbPool.Close()
}

// Ping checks the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.dbPool.Ping(ctx)
}

// SaveChallenge stores c, replacing any challenge with the same token.
func (s *Storage) SaveChallenge(ctx context.Context, c models.Challenge) error {
	const op = "storage.postgres.SaveChallenge"

	_, err := s.dbPool.Exec(
		ctx,
		`INSERT INTO challenges (token, requester_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (token) DO UPDATE SET requester_id = EXCLUDED.requester_id, created_at = EXCLUDED.created_at`,
		c.Token,
		c.RequesterID,
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PopChallenge deletes the challenge for token and returns it.
// Concurrent callers with the same token see at most one success.
func (s *Storage) PopChallenge(ctx context.Context, token string) (models.Challenge, error) {
	const op = "storage.postgres.PopChallenge"

	c := models.Challenge{Token: token}
	err := s.dbPool.QueryRow(
		ctx,
		`DELETE FROM challenges WHERE token = $1 RETURNING requester_id, created_at`,
		token,
	).Scan(&c.RequesterID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Challenge{}, storage.ErrChallengeNotFound
		}
		return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// PurgeChallenges removes challenges created before the cutoff.
func (s *Storage) PurgeChallenges(ctx context.Context, before time.Time) (int64, error) {
	const op = "storage.postgres.PurgeChallenges"

	tag, err := s.dbPool.Exec(ctx, `DELETE FROM challenges WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

// SaveUser inserts or fully replaces the row for u.RequesterID.
func (s *Storage) SaveUser(ctx context.Context, u models.AuthorizedUser) error {
	const op = "storage.postgres.SaveUser"

	_, err := s.dbPool.Exec(
		ctx,
		`INSERT INTO users (requester_id, provider_login, access_token, scopes, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (requester_id) DO UPDATE SET
		     provider_login = EXCLUDED.provider_login,
		     access_token   = EXCLUDED.access_token,
		     scopes         = EXCLUDED.scopes,
		     created_at     = EXCLUDED.created_at`,
		u.RequesterID,
		u.ProviderLogin,
		u.AccessToken,
		u.Scopes,
		u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// User gets the authorized user by requester id.
func (s *Storage) User(ctx context.Context, requesterID int64) (models.AuthorizedUser, error) {
	const op = "storage.postgres.User"

	var u models.AuthorizedUser
	err := s.dbPool.QueryRow(
		ctx,
		`SELECT requester_id, provider_login, access_token, scopes, created_at FROM users WHERE requester_id = $1`,
		requesterID,
	).Scan(&u.RequesterID, &u.ProviderLogin, &u.AccessToken, &u.Scopes, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AuthorizedUser{}, storage.ErrUserNotFound
		}
		return models.AuthorizedUser{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
