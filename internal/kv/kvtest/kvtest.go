// Package kvtest holds the behavior every kv.Store must share.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/kv"
)

// Run exercises a fresh Store from newStore for each case.
func Run(t *testing.T, newStore func(t *testing.T) kv.Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := newStore(t).Get(ctx, "absent")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "auth_token", "abc"))

		v, err := s.Get(ctx, "auth_token")
		require.NoError(t, err)
		assert.Equal(t, "abc", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", "one"))
		require.NoError(t, s.Set(ctx, "k", "two"))

		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", v)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", "v"))
		require.NoError(t, s.Delete(ctx, "k"))

		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.NoError(t, newStore(t).Delete(ctx, "absent"))
	})

	t.Run("empty value", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "k", ""))

		v, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, v)
	})
}
