package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
)

// Publish posts message to a pub/sub channel and returns the number of
// subscribers that received it.
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) (int64, error) {
	return c.rdb.Publish(ctx, channel, message).Result()
}

// Subscribe subscribes to channels. The caller must Close the returned
// PubSub; its Channel() delivers messages until then.
func (c *Client) Subscribe(ctx context.Context, channels ...string) *goredis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}
