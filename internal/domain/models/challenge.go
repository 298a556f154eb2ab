package models

import "time"

// Challenge is a single-use authorization state issued for a chat user.
// It is redeemable at most once.
type Challenge struct {
	Token       string    `json:"token" db:"token"`
	RequesterID int64     `json:"requester_id" db:"requester_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ExpiredAt reports whether the challenge is older than ttl at now.
// A non-positive ttl never expires.
func (c Challenge) ExpiredAt(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.CreatedAt) > ttl
}
