package models

import "time"

// AuthorizedUser is the latest successful authorization of a chat user.
type AuthorizedUser struct {
	RequesterID   int64     `json:"requester_id" db:"requester_id"`
	ProviderLogin string    `json:"provider_login" db:"provider_login"`
	AccessToken   string    `json:"-" db:"access_token"`
	Scopes        string    `json:"scopes" db:"scopes"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ProviderToken is the result of an authorization code exchange.
type ProviderToken struct {
	AccessToken string
	Scopes      string
}
