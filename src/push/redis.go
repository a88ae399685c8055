package push

import (
	"context"
	"fmt"
	"net/url"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "spider:stats"

// Redis publishes each message on a pub/sub channel. The channel is taken from
// the target's fragment, e.g. redis://localhost:6379/0#crawler:stats.
type Redis struct {
	name    string
	channel string
	rdb     *redis.Client
}

func NewRedis(u *url.URL) (*Redis, error) {
	channel := u.Fragment
	if channel == "" {
		channel = DefaultRedisChannel
	}
	plain := *u
	plain.Fragment = ""
	plain.RawFragment = ""

	opts, err := redis.ParseURL(plain.String())
	if err != nil {
		return nil, fmt.Errorf("invalid redis push target %s: %w", plain.Redacted(), err)
	}
	return &Redis{
		name:    plain.Redacted() + "#" + channel,
		channel: channel,
		rdb:     redis.NewClient(opts),
	}, nil
}

func (r *Redis) Name() string {
	return r.name
}

func (r *Redis) Channel() string {
	return r.channel
}

func (r *Redis) Deliver(ctx context.Context, msg string) error {
	return r.rdb.Publish(ctx, r.channel, msg).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
