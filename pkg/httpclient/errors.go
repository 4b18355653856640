package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type errorEnvelope struct {
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// ParseResponseError consumes and closes the body of a non-2xx response
// and maps it onto an AppError carrying the remote code and message.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Network("read error response", err)
	}

	code, msg := "", http.StatusText(resp.StatusCode)
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		code, msg = env.Error.Code, env.Error.Message
	}

	var mapped *apperrors.AppError
	switch resp.StatusCode {
	case http.StatusNotFound:
		mapped = apperrors.NotFound("resource", msg)
	case http.StatusBadRequest:
		mapped = apperrors.InvalidInput(msg)
	case http.StatusUnauthorized:
		mapped = apperrors.Unauthorized(msg)
	case http.StatusForbidden:
		mapped = apperrors.Forbidden(msg)
	case http.StatusConflict:
		mapped = apperrors.Conflict(msg)
	case http.StatusTooManyRequests:
		mapped = apperrors.RateLimited(msg)
	default:
		if resp.StatusCode >= 500 {
			return apperrors.Network("remote call", fmt.Errorf("status %d: %s", resp.StatusCode, msg))
		}
		mapped = &apperrors.AppError{Code: "UNEXPECTED_STATUS", Message: msg, Status: resp.StatusCode}
	}
	if code != "" {
		mapped.Code = code
	}
	if resp.StatusCode == http.StatusNotFound {
		mapped.Message = msg
	}
	return mapped
}

// AsNetworkError converts transport level failures (connection errors,
// open breaker, 5xx) into apperrors.Network. AppErrors pass through.
func AsNetworkError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Network(op, err)
}
