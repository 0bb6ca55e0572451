package notify

import (
	"context"
	"errors"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/riskibarqy/chess-wager/internal/domain/notification"
)

const channelPrefix = "notifications:"

type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher pushes each event to the recipient's pub/sub channel for
// realtime delivery. Nobody listening is not an error.
type RedisPublisher struct {
	client publisher
}

func NewRedisPublisher(client publisher) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Connect opens a client from a redis:// URL and pings it.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, crerr.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, crerr.Wrap(err, "ping redis")
	}
	return client, nil
}

func Channel(userID string) string {
	return channelPrefix + userID
}

func (p *RedisPublisher) Dispatch(ctx context.Context, events ...notification.Event) error {
	var errs []error
	for _, event := range events {
		if event.UserID == "" {
			continue
		}
		payload, err := sonic.Marshal(event)
		if err != nil {
			errs = append(errs, crerr.Wrapf(err, "encode notification %s", event.ID))
			continue
		}
		if err := p.client.Publish(ctx, Channel(event.UserID), payload).Err(); err != nil {
			errs = append(errs, crerr.Wrapf(err, "publish notification user_id=%s", event.UserID))
		}
	}
	return errors.Join(errs...)
}
