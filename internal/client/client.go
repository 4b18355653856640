// Package client is a typed client of the storefront REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const pageSize = 100

// Doer sends HTTP requests. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client calls the storefront API under baseURL.
type Client struct {
	baseURL string
	http    Doer
	logger  *slog.Logger
}

// New creates a Client. baseURL is the server origin, without the /api/v1
// prefix.
func New(baseURL string, doer Doer, logger *slog.Logger) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer, logger: logger}
}

// NewDefault builds a Client over a retrying, circuit-broken HTTP client.
func NewDefault(baseURL string, logger *slog.Logger) *Client {
	hc := httpclient.New(httpclient.DefaultConfig())
	cb := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig("storefront-api"), logger)
	return New(baseURL, cb, logger)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// call sends one request and decodes the data half of the envelope into
// out when out is non-nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, token string, body, out any) error {
	u := c.baseURL + "/api/v1" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	op := method + " " + path
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return httpclient.AsNetworkError(op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return httpclient.ParseResponseError(resp)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperrors.Network(op, fmt.Errorf("decode response: %w", err))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Network(op, fmt.Errorf("decode response data: %w", err))
	}
	return nil
}

// Login implements session.Authenticator.
func (c *Client) Login(ctx context.Context, cred domain.Credentials) (*domain.AuthResult, error) {
	var res domain.AuthResult
	if err := c.call(ctx, http.MethodPost, "/auth/login", nil, "", cred, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Register implements session.Authenticator.
func (c *Client) Register(ctx context.Context, r domain.Registration) (*domain.AuthResult, error) {
	var res domain.AuthResult
	if err := c.call(ctx, http.MethodPost, "/auth/register", nil, "", r, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout implements session.Authenticator.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.call(ctx, http.MethodPost, "/auth/logout", nil, token, nil, nil)
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var u domain.User
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// SearchProducts fetches one page of server-side browse results.
func (c *Client) SearchProducts(ctx context.Context, q catalog.Query, page, perPage int) (*catalog.Page, error) {
	v := q.Values()
	v.Set("page", strconv.Itoa(page))
	v.Set("per_page", strconv.Itoa(perPage))

	var p catalog.Page
	if err := c.call(ctx, http.MethodGet, "/products", v, "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Query implements catalog.Searcher by reading every page of the result.
func (c *Client) Query(ctx context.Context, q catalog.Query) ([]domain.Product, error) {
	out := []domain.Product{}
	for page := 1; ; page++ {
		p, err := c.SearchProducts(ctx, q, page, pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Data...)
		if !p.HasNext {
			return out, nil
		}
	}
}

// ListProducts implements catalog.ProductSource.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return c.Query(ctx, catalog.DefaultQuery())
}

// Product fetches one product.
func (c *Client) Product(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := c.call(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, "", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Facets fetches the filter facets of the catalog.
func (c *Client) Facets(ctx context.Context) (*catalog.Facets, error) {
	var f catalog.Facets
	if err := c.call(ctx, http.MethodGet, "/products/facets", nil, "", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// RecordView adds a product to the user's recently viewed list.
func (c *Client) RecordView(ctx context.Context, token, productID string) error {
	return c.call(ctx, http.MethodPost, "/products/"+url.PathEscape(productID)+"/view", nil, token, nil, nil)
}

// RecentlyViewed lists the user's recently viewed products.
func (c *Client) RecentlyViewed(ctx context.Context, token string, limit int) ([]domain.Product, error) {
	v := url.Values{"limit": {strconv.Itoa(limit)}}
	var out []domain.Product
	if err := c.call(ctx, http.MethodGet, "/users/recently-viewed", v, token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCart fetches the user's cart.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.CartSummary, error) {
	var s domain.CartSummary
	if err := c.call(ctx, http.MethodGet, "/cart", nil, token, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// PutCart replaces the user's cart.
func (c *Client) PutCart(ctx context.Context, token string, state *domain.CartState) (*domain.CartSummary, error) {
	var s domain.CartSummary
	if err := c.call(ctx, http.MethodPut, "/cart", nil, token, state, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
