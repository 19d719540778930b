package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func TestCombineContext(t *testing.T) {
	t.Run("CanceledBySecondary", func(t *testing.T) {
		primary := context.WithValue(context.Background(), ctxKey("k"), "primary")
		secondary, cancelSecondary := context.WithCancel(context.Background())

		combined, cancel := CombineContext(primary, secondary)
		defer cancel()

		assert.Equal(t, "primary", combined.Value(ctxKey("k")))
		cancelSecondary()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context was not canceled by secondary")
		}
	})

	t.Run("CanceledByPrimary", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		combined, cancel := CombineContext(primary, context.Background())
		defer cancel()

		cancelPrimary()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("SecondaryDeadline", func(t *testing.T) {
		secondary, cancelSecondary := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelSecondary()

		combined, cancel := CombineContext(context.Background(), secondary)
		defer cancel()

		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context ignored the secondary deadline")
		}
	})

	t.Run("CancelDoesNotAffectParents", func(t *testing.T) {
		primary, cancelPrimary := context.WithCancel(context.Background())
		defer cancelPrimary()
		secondary, cancelSecondary := context.WithCancel(context.Background())
		defer cancelSecondary()

		combined, cancel := CombineContext(primary, secondary)
		cancel()

		require.Error(t, combined.Err())
		assert.NoError(t, primary.Err())
		assert.NoError(t, secondary.Err())
	})
}

func TestSleepContext(t *testing.T) {
	t.Run("Elapses", func(t *testing.T) {
		start := time.Now()
		require.NoError(t, sleepContext(context.Background(), 20*time.Millisecond))
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	})

	t.Run("ZeroDuration", func(t *testing.T) {
		assert.NoError(t, sleepContext(context.Background(), 0))
	})
}
