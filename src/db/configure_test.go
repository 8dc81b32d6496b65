package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"git.handmade.network/hmn/pgdsl/src/utils"
	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryUntilConnected(t *testing.T) {
	t.Run("retries until connected", func(t *testing.T) {
		attempts := 0
		boff := &backoff.Backoff{Min: time.Millisecond, Max: 5 * time.Millisecond}

		conn, err := retryUntilConnected(context.Background(), boff, func(ctx context.Context) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("connection refused")
			}
			return "connected", nil
		})
		require.Nil(t, err)
		assert.Equal(t, "connected", conn)
		assert.Equal(t, 3, attempts)
	})
	t.Run("stops when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		boff := &backoff.Backoff{Min: 5 * time.Millisecond, Max: 5 * time.Millisecond}

		_, err := retryUntilConnected(ctx, boff, func(ctx context.Context) (int, error) {
			return 0, errors.New("connection refused")
		})
		assert.True(t, errors.Is(err, utils.ErrSleepInterrupted))
	})
}

func TestNameQuery(t *testing.T) {
	assert.Equal(t, "select 1", nameQuery("", "select 1"))
	assert.Equal(t, "---- One\nselect 1", nameQuery("One", "select 1"))

	_, ok := GetQueryName("select 1")
	assert.False(t, ok)
}
