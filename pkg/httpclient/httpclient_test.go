package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	return cfg
}

func TestClient_RetriesSafeMethods(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := New(fastConfig()).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL, strings.NewReader(`{}`))
	resp, err := New(fastConfig()).Do(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	_, err := New(fastConfig()).Do(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt")
}

func TestCircuitBreaker_TripsOnServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("db down"))
	}))
	defer srv.Close()

	cfg := fastConfig()
	cfg.MaxRetries = 0
	cbCfg := DefaultCircuitBreakerConfig("storefront-api-test")
	cbCfg.MinRequests = 2
	cb := NewCircuitBreakerClient(New(cfg), cbCfg, logger.Discard())

	for range 2 {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		_, err := cb.Do(context.Background(), req)
		var srvErr *ServerError
		require.ErrorAs(t, err, &srvErr)
		assert.Equal(t, "db down", srvErr.Body)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	_, err := cb.Do(context.Background(), req)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cbCfg := DefaultCircuitBreakerConfig("storefront-api-4xx")
	cbCfg.MinRequests = 1
	cb := NewCircuitBreakerClient(New(fastConfig()), cbCfg, logger.Discard())

	for range 3 {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := cb.Do(context.Background(), req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func respond(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	rec.WriteHeader(status)
	_, _ = rec.WriteString(body)
	return rec.Result()
}

func TestParseResponseError(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		code     string
		message  string
	}{
		{"structured not found", 404, `{"error":{"code":"NOT_FOUND","message":"product with id 9 not found"}}`, apperrors.ErrNotFound, "NOT_FOUND", "product with id 9 not found"},
		{"validation", 400, `{"error":{"code":"VALIDATION_ERROR","message":"request validation failed"}}`, apperrors.ErrInvalidInput, "VALIDATION_ERROR", "request validation failed"},
		{"unauthorized", 401, `{"error":{"code":"UNAUTHORIZED","message":"invalid or expired token"}}`, apperrors.ErrUnauthorized, "UNAUTHORIZED", "invalid or expired token"},
		{"forbidden", 403, `{"error":{"code":"FORBIDDEN","message":"account is deactivated"}}`, apperrors.ErrForbidden, "FORBIDDEN", "account is deactivated"},
		{"conflict", 409, `{"error":{"code":"ALREADY_EXISTS","message":"exists"}}`, apperrors.ErrConflict, "ALREADY_EXISTS", "exists"},
		{"rate limited", 429, `{"error":{"code":"RATE_LIMITED","message":"slow down"}}`, apperrors.ErrRateLimited, "RATE_LIMITED", "slow down"},
		{"unstructured", 400, `oops`, apperrors.ErrInvalidInput, "INVALID_INPUT", "Bad Request"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ParseResponseError(respond(tc.status, tc.body))
			assert.ErrorIs(t, err, tc.sentinel)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.message, appErr.Message)
		})
	}
}

func TestParseResponseError_ServerErrorIsNetwork(t *testing.T) {
	err := ParseResponseError(respond(http.StatusBadGateway, `upstream`))
	assert.ErrorIs(t, err, apperrors.ErrNetwork)
}

func TestAsNetworkError(t *testing.T) {
	assert.NoError(t, AsNetworkError("save cart", nil))
	assert.ErrorIs(t, AsNetworkError("save cart", errors.New("dial tcp: refused")), apperrors.ErrNetwork)
	assert.ErrorIs(t, AsNetworkError("save cart", ErrCircuitOpen), apperrors.ErrNetwork)

	passthrough := apperrors.Unauthorized("expired")
	assert.Same(t, passthrough, AsNetworkError("save cart", passthrough))
}
