package schema

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierFanout(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	notifier := NewNotifier(client, "vulcan.schema", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- notifier.Subscribe(ctx, func(context.Context) error {
			select {
			case reloaded <- struct{}{}:
			default:
			}
			return nil
		})
	}()

	// The subscription needs a moment to register before the publish.
	require.Eventually(t, func() bool {
		return notifier.Publish(context.Background()) == nil && len(reloaded) > 0
	}, 5*time.Second, 50*time.Millisecond)

	<-reloaded
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestNotifierWithoutRedisIsInert(t *testing.T) {
	notifier := NewNotifier(nil, "vulcan.schema", nil)

	require.NoError(t, notifier.Publish(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, notifier.Subscribe(ctx, nil), context.Canceled)
}
