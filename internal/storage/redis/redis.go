package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ghbridge/internal/config"
	"ghbridge/internal/domain/models"
	"ghbridge/internal/storage"
)

// Redis keys
// -- challenge:<token>: pending authorization challenge
// -- chat_session:<requester_id>: pending chat action
const (
	challengeKey   = "challenge"
	chatSessionKey = "chat_session"
)

// Cache keeps short-lived records in redis. Expiry is enforced by key TTLs.
type Cache struct {
	rdb          *redis.Client
	challengeTTL time.Duration
	sessionTTL   time.Duration
}

// NewCache creates a redis client from conf.
func NewCache(conf config.RedisConfig, challengeTTL, sessionTTL time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	return NewCacheFromClient(rdb, challengeTTL, sessionTTL)
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(rdb *redis.Client, challengeTTL, sessionTTL time.Duration) *Cache {
	return &Cache{rdb: rdb, challengeTTL: challengeTTL, sessionTTL: sessionTTL}
}

// Ping checks the redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the redis client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

type challengeRecord struct {
	RequesterID int64     `json:"requester_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveChallenge stores ch under its token, replacing any previous value.
func (c *Cache) SaveChallenge(ctx context.Context, ch models.Challenge) error {
	const op = "storage.redis.SaveChallenge"

	data, err := json.Marshal(challengeRecord{RequesterID: ch.RequesterID, CreatedAt: ch.CreatedAt})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.rdb.Set(ctx, key(challengeKey, ch.Token), data, c.challengeTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PopChallenge atomically reads and deletes the challenge with GETDEL.
func (c *Cache) PopChallenge(ctx context.Context, token string) (models.Challenge, error) {
	const op = "storage.redis.PopChallenge"

	data, err := c.rdb.GetDel(ctx, key(challengeKey, token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Challenge{}, storage.ErrChallengeNotFound
		}
		return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}
	var rec challengeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.Challenge{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	return models.Challenge{Token: token, RequesterID: rec.RequesterID, CreatedAt: rec.CreatedAt}, nil
}

// PurgeChallenges is a no-op: redis expires challenge keys on its own.
func (c *Cache) PurgeChallenges(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

// SaveSession stores the chat session and refreshes its TTL.
func (c *Cache) SaveSession(ctx context.Context, s models.ChatSession) error {
	const op = "storage.redis.SaveSession"

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.rdb.Set(ctx, key(chatSessionKey, strconv.FormatInt(s.RequesterID, 10)), data, c.sessionTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Session gets the chat session of requesterID.
func (c *Cache) Session(ctx context.Context, requesterID int64) (models.ChatSession, error) {
	const op = "storage.redis.Session"

	data, err := c.rdb.Get(ctx, key(chatSessionKey, strconv.FormatInt(requesterID, 10))).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ChatSession{}, storage.ErrSessionNotFound
		}
		return models.ChatSession{}, fmt.Errorf("%s: %w", op, err)
	}
	var s models.ChatSession
	if err := json.Unmarshal(data, &s); err != nil {
		return models.ChatSession{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	return s, nil
}

// DeleteSession removes the chat session of requesterID.
func (c *Cache) DeleteSession(ctx context.Context, requesterID int64) error {
	const op = "storage.redis.DeleteSession"

	if err := c.rdb.Del(ctx, key(chatSessionKey, strconv.FormatInt(requesterID, 10))).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func key(prefix, id string) string {
	return prefix + ":" + id
}
