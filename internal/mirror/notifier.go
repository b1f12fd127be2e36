package mirror

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Notifier carries change notifications from the mutation side to the store.
// A notification names the collection that changed; it carries no payload —
// mirrors always reload the full collection.
type Notifier interface {
	Publish(ctx context.Context, collection Collection) error
}

// RedisNotifier publishes and consumes change notifications over redis
// pub/sub, one channel per collection, prefixed by the app namespace.
type RedisNotifier struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// NewRedisNotifier builds a notifier bound to one namespace.
func NewRedisNotifier(client *redis.Client, namespace string, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisNotifier{client: client, namespace: namespace, logger: logger}
}

func (n *RedisNotifier) channel(collection Collection) string {
	return n.namespace + ":sync:" + string(collection)
}

// Publish emits a change notification for the collection.
func (n *RedisNotifier) Publish(ctx context.Context, collection Collection) error {
	return n.client.Publish(ctx, n.channel(collection), "changed").Err()
}

// Listen subscribes to all collection channels in this namespace and forwards
// collection names until the context is cancelled. Transport errors are logged
// and the subscription is left to the client's automatic reconnect; mirrors
// keep their last-known snapshot in the meantime.
func (n *RedisNotifier) Listen(ctx context.Context) <-chan Collection {
	pattern := n.namespace + ":sync:*"
	prefix := n.namespace + ":sync:"
	out := make(chan Collection, 16)

	pubsub := n.client.PSubscribe(ctx, pattern)

	go func() {
		defer close(out)
		defer pubsub.Close() //nolint:errcheck
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					n.logger.Warn("notification channel closed", zap.String("pattern", pattern))
					return
				}
				collection := Collection(strings.TrimPrefix(msg.Channel, prefix))
				select {
				case out <- collection:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
