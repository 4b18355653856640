// Package shopper bundles the client core of one shopper: session, cart
// and catalog browsing.
package shopper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/client"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/kv"
	"github.com/utafrali/storefront/internal/reconciler"
	"github.com/utafrali/storefront/internal/session"
)

// Session is the explicit context object a front end passes around in
// place of global auth and cart state.
type Session struct {
	Gate    *session.Gate
	Cart    *reconciler.Reconciler
	Browser *catalog.Browser

	api    *client.Client
	local  *reconciler.KVPersister
	logger *slog.Logger
}

// New wires a Session over store and api. Guests keep their cart in the
// store; signed-in shoppers keep it on the server.
func New(store kv.Store, api *client.Client, logger *slog.Logger) *Session {
	s := &Session{
		Gate:    session.New(store, api, logger),
		Browser: catalog.NewBrowser(api),
		api:     api,
		local:   reconciler.NewKVPersister(store),
		logger:  logger,
	}
	s.Cart = reconciler.New(&switchingPersister{gate: s.Gate, local: s.local, remote: api.CartPersister(s.Gate)}, logger)
	return s
}

// Start restores a stored session and loads the matching cart.
func (s *Session) Start(ctx context.Context) error {
	if _, err := s.Gate.Restore(ctx); err != nil {
		return err
	}
	if err := s.Cart.Load(ctx); err != nil {
		return fmt.Errorf("load cart: %w", err)
	}
	return nil
}

// Login signs in and switches the cart to the server copy.
func (s *Session) Login(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.Gate.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return u, s.Cart.Resync(ctx)
}

// Signup registers and switches the cart to the server copy.
func (s *Session) Signup(ctx context.Context, r domain.Registration) (*domain.User, error) {
	u, err := s.Gate.Signup(ctx, r)
	if err != nil {
		return nil, err
	}
	return u, s.Cart.Resync(ctx)
}

// Logout ends the session and clears the local cart.
func (s *Session) Logout(ctx context.Context) error {
	err := s.Gate.Logout(ctx)
	s.Cart.Reset()
	return errors.Join(err, s.local.Clear(ctx))
}

// ViewProduct fetches a product and, for signed-in shoppers, records the
// view. A failed record does not fail the view.
func (s *Session) ViewProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.api.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	if token, ok := s.Gate.AuthToken(); ok {
		if err := s.api.RecordView(ctx, token, id); err != nil {
			s.logger.WarnContext(ctx, "record view failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// RecentlyViewed lists the signed-in shopper's recently viewed products.
func (s *Session) RecentlyViewed(ctx context.Context, limit int) ([]domain.Product, error) {
	if err := s.Gate.RequireAuth(); err != nil {
		return nil, err
	}
	token, _ := s.Gate.AuthToken()
	return s.api.RecentlyViewed(ctx, token, limit)
}

// switchingPersister stores the cart remotely while a session exists and
// locally otherwise.
type switchingPersister struct {
	gate   *session.Gate
	local  reconciler.Persister
	remote reconciler.Persister
}

func (p *switchingPersister) current() reconciler.Persister {
	if p.gate.IsAuthenticated() {
		return p.remote
	}
	return p.local
}

func (p *switchingPersister) LoadCart(ctx context.Context) (*domain.CartState, error) {
	return p.current().LoadCart(ctx)
}

func (p *switchingPersister) SaveCart(ctx context.Context, state *domain.CartState) error {
	return p.current().SaveCart(ctx, state)
}
