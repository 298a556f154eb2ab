package relay

import (
	"context"
	"fmt"

	"ghbridge/internal/domain/models"
	"ghbridge/internal/services/relay/interfaces"
)

// Credentials is the credential store: user records whose access tokens are
// sealed before they are written and opened after they are read.
type Credentials struct {
	storage interfaces.UserStorage
	sealer  interfaces.Sealer
}

func NewCredentials(storage interfaces.UserStorage, sealer interfaces.Sealer) *Credentials {
	return &Credentials{storage: storage, sealer: sealer}
}

// Upsert replaces the record of u.RequesterID.
func (c *Credentials) Upsert(ctx context.Context, u models.AuthorizedUser) error {
	const op = "relay.Credentials.Upsert"

	sealed, err := c.sealer.Seal(ctx, u.AccessToken)
	if err != nil {
		return fmt.Errorf("%s: seal: %w", op, err)
	}
	u.AccessToken = sealed
	if err := c.storage.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Lookup returns the record of requesterID with its token opened.
// Returns storage.ErrUserNotFound if the requester never authorized.
func (c *Credentials) Lookup(ctx context.Context, requesterID int64) (models.AuthorizedUser, error) {
	const op = "relay.Credentials.Lookup"

	u, err := c.storage.User(ctx, requesterID)
	if err != nil {
		return models.AuthorizedUser{}, fmt.Errorf("%s: %w", op, err)
	}
	plain, err := c.sealer.Open(ctx, u.AccessToken)
	if err != nil {
		return models.AuthorizedUser{}, fmt.Errorf("%s: open: %w", op, err)
	}
	u.AccessToken = plain
	return u, nil
}
