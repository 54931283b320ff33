package session

import (
	"context"

	"github.com/artpar/artsy/internal/api"
	"github.com/artpar/artsy/internal/core"
)

// IdentityClient is the part of the API client the resolver needs.
type IdentityClient interface {
	Me(ctx context.Context) (api.Identity, error)
}

// Resolver asks the identity endpoint who is signed in. It is used at
// startup and again after login and register to refresh favorites.
type Resolver struct {
	client IdentityClient
}

// NewResolver creates a Resolver.
func NewResolver(client IdentityClient) *Resolver {
	return &Resolver{client: client}
}

// Resolve returns the session for the current cookies, or nil when the
// server reports no signed-in user. It has no side effects.
func (r *Resolver) Resolve(ctx context.Context) (*core.Session, error) {
	id, err := r.client.Me(ctx)
	if err != nil {
		return nil, err
	}
	if id.Anonymous() {
		return nil, nil
	}
	return id.User.ToSession(), nil
}
