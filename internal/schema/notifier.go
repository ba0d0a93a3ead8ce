package schema

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Notifier fans schema changes out to other replicas over a redis channel,
// so every registry is rebuilt when one instance alters the schema.
type Notifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier constructs a Notifier. A nil client disables fanout.
func NewNotifier(client *redis.Client, channel string, logger *slog.Logger) *Notifier {
	return &Notifier{client: client, channel: channel, logger: logger}
}

// Publish announces a schema change.
func (n *Notifier) Publish(ctx context.Context) error {
	if n == nil || n.client == nil {
		return nil
	}
	return n.client.Publish(ctx, n.channel, "reload").Err()
}

// Subscribe blocks, invoking reload for every announcement until the context
// is cancelled. Reload failures are logged and the subscription continues;
// the registry will catch up on the next announcement.
func (n *Notifier) Subscribe(ctx context.Context, reload func(context.Context) error) error {
	if n == nil || n.client == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("schema: subscription channel closed")
			}
			if err := reload(ctx); err != nil && n.logger != nil {
				n.logger.Error("registry reload", slog.String("channel", msg.Channel), slog.Any("error", err))
			}
		}
	}
}
