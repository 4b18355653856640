package client

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// TokenSource yields the bearer token of the current session.
// *session.Gate satisfies it.
type TokenSource interface {
	AuthToken() (string, bool)
}

// CartPersister stores a signed-in shopper's cart on the server.
type CartPersister struct {
	client *Client
	tokens TokenSource
}

// CartPersister returns a reconciler.Persister bound to tokens.
func (c *Client) CartPersister(tokens TokenSource) *CartPersister {
	return &CartPersister{client: c, tokens: tokens}
}

func (p *CartPersister) token() (string, error) {
	token, ok := p.tokens.AuthToken()
	if !ok {
		return "", apperrors.Unauthorized("sign in to sync your cart")
	}
	return token, nil
}

func (p *CartPersister) LoadCart(ctx context.Context) (*domain.CartState, error) {
	token, err := p.token()
	if err != nil {
		return nil, err
	}
	s, err := p.client.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	return &s.CartState, nil
}

func (p *CartPersister) SaveCart(ctx context.Context, state *domain.CartState) error {
	token, err := p.token()
	if err != nil {
		return err
	}
	_, err = p.client.PutCart(ctx, token, state)
	return err
}
