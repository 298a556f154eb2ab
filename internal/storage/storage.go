package storage

import "errors"

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrSessionNotFound   = errors.New("session not found")
)
