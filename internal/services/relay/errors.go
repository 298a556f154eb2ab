package relay

import "errors"

var (
	ErrInvalidRequester    = errors.New("telegram_id required")
	ErrMalformedCallback   = errors.New("missing code/state")
	ErrInvalidState        = errors.New("invalid or expired state")
	ErrChallengeExpired    = errors.New("challenge expired")
	ErrTokenExchangeFailed = errors.New("auth failed")
	ErrIdentityFetchFailed = errors.New("user fetch failed")
)
