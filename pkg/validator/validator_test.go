package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type cartLine struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size" validate:"max=16"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=100"`
}

type signup struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(cartLine{ProductID: "1", Size: "M", Quantity: 2}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(cartLine{Quantity: 0})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := verr.Fields()
	assert.Equal(t, "is required", fields["productId"])
	assert.Equal(t, "must be greater than 0", fields["quantity"])
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestValidate_MinMessages(t *testing.T) {
	err := Validate(signup{Name: "A", Email: "bad", Password: "short"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := verr.Fields()
	assert.Equal(t, "must be at least 2 characters", fields["name"])
	assert.Equal(t, "must be a valid email address", fields["email"])
	assert.Equal(t, "must be at least 8 characters", fields["password"])
	assert.Contains(t, verr.Error(), "field 'email'")
}

func TestValidate_UpperBound(t *testing.T) {
	err := Validate(cartLine{ProductID: "1", Quantity: 101})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be less than or equal to 100", verr.Fields()["quantity"])
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"2","quantity":1}`))
		var dst cartLine
		require.NoError(t, DecodeAndValidate(r, &dst))
		assert.Equal(t, "2", dst.ProductID)
	})

	t.Run("malformed json", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":`))
		var dst cartLine
		err := DecodeAndValidate(r, &dst)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("fails validation", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", strings.NewReader(`{"productId":"2","quantity":-1}`))
		var dst cartLine
		var verr *ValidationError
		assert.ErrorAs(t, DecodeAndValidate(r, &dst), &verr)
	})
}
