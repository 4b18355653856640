// Package session owns the shopper's authentication token and identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/kv"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Storage keys.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// Authenticator issues and revokes tokens.
type Authenticator interface {
	Login(ctx context.Context, c domain.Credentials) (*domain.AuthResult, error)
	Register(ctx context.Context, r domain.Registration) (*domain.AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// Gate holds at most one session and persists it through a kv.Store so it
// survives restarts.
type Gate struct {
	store  kv.Store
	auth   Authenticator
	logger *slog.Logger

	mu    sync.RWMutex
	token string
	user  *domain.User
}

// New creates a Gate with no session.
func New(store kv.Store, auth Authenticator, logger *slog.Logger) *Gate {
	return &Gate{store: store, auth: auth, logger: logger}
}

// Restore loads a persisted session. It reports whether one was found. A
// half-written or unreadable session is discarded.
func (g *Gate) Restore(ctx context.Context) (bool, error) {
	token, err := g.store.Get(ctx, TokenKey)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}

	raw, err := g.store.Get(ctx, UserKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return false, fmt.Errorf("restore session: %w", err)
	}

	var user domain.User
	if err != nil || json.Unmarshal([]byte(raw), &user) != nil || token == "" {
		g.logger.WarnContext(ctx, "discarding unreadable stored session")
		return false, g.forget(ctx)
	}

	g.mu.Lock()
	g.token, g.user = token, &user
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "session restored", slog.String("user_id", user.ID))
	return true, nil
}

// Login authenticates and stores the new session.
func (g *Gate) Login(ctx context.Context, email, password string) (*domain.User, error) {
	c := domain.Credentials{Email: domain.NormalizeEmail(email), Password: password}
	if c.Email == "" || c.Password == "" {
		return nil, apperrors.InvalidInput("email and password are required")
	}

	res, err := g.auth.Login(ctx, c)
	if err != nil {
		return nil, err
	}
	return g.establish(ctx, res)
}

// Signup registers an account and stores its session.
func (g *Gate) Signup(ctx context.Context, r domain.Registration) (*domain.User, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = domain.NormalizeEmail(r.Email)
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return nil, apperrors.InvalidInput("name, email and password are required")
	}

	res, err := g.auth.Register(ctx, r)
	if err != nil {
		return nil, err
	}
	return g.establish(ctx, res)
}

func (g *Gate) establish(ctx context.Context, res *domain.AuthResult) (*domain.User, error) {
	if res == nil || res.User == nil || res.Token == "" {
		return nil, apperrors.Internal(errors.New("authenticator returned an empty session"))
	}

	raw, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	if err := g.store.Set(ctx, TokenKey, res.Token); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := g.store.Set(ctx, UserKey, string(raw)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	g.mu.Lock()
	g.token, g.user = res.Token, res.User
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "session established", slog.String("user_id", res.User.ID))
	u := *res.User
	return &u, nil
}

// Logout ends the session. The remote logout is best-effort; the local
// session is always cleared.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	token := g.token
	g.token, g.user = "", nil
	g.mu.Unlock()

	if token != "" {
		if err := g.auth.Logout(ctx, token); err != nil {
			g.logger.WarnContext(ctx, "remote logout failed", slog.String("error", err.Error()))
		}
	}
	return g.forget(ctx)
}

func (g *Gate) forget(ctx context.Context) error {
	return errors.Join(g.store.Delete(ctx, TokenKey), g.store.Delete(ctx, UserKey))
}

// AuthToken returns the bearer token of the current session.
func (g *Gate) AuthToken() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token, g.token != ""
}

// User returns a copy of the signed-in user.
func (g *Gate) User() (*domain.User, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.user == nil {
		return nil, false
	}
	u := *g.user
	return &u, true
}

// IsAuthenticated reports whether a session exists.
func (g *Gate) IsAuthenticated() bool {
	_, ok := g.AuthToken()
	return ok
}

// RequireAuth gates personalized views.
func (g *Gate) RequireAuth() error {
	if !g.IsAuthenticated() {
		return apperrors.Unauthorized("please log in to continue")
	}
	return nil
}
