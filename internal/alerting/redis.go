package alerting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// publisher is the slice of the redis client used for alerts.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes notifications as JSON on a pub/sub channel.
type RedisNotifier struct {
	client  publisher
	closer  func() error
	channel string
	logger  zerolog.Logger
}

// NewRedisNotifier dials addr lazily; the connection is opened on first publish.
func NewRedisNotifier(addr, password string, db int, channel string, logger zerolog.Logger) *RedisNotifier {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisNotifier{
		client:  client,
		closer:  client.Close,
		channel: channel,
		logger:  logger.With().Str("component", "alert_redis").Logger(),
	}
}

// Notify publishes the notification payload.
func (n *RedisNotifier) Notify(ctx context.Context, note Notification) error {
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal redis payload: %w", err)
	}

	receivers, err := n.client.Publish(ctx, n.channel, string(data)).Result()
	if err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}

	n.logger.Info().Str("exchange", note.Exchange).
		Str("channel", n.channel).
		Int64("receivers", receivers).
		Msg("告警已发送 (Redis)")
	return nil
}

// Close releases the redis connection pool.
func (n *RedisNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer()
}

var _ Notifier = (*RedisNotifier)(nil)
