package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"neothink/pkg/types"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBus fans events out across server instances. Publish writes to a
// Redis channel; a forwarder started with Start relays every message on
// that channel into the local Hub that Subscribe registers against.
type RedisBus struct {
	logger  *logrus.Logger
	rdb     *goredis.Client
	channel string
	hub     *Hub
}

func NewRedisBus(ctx context.Context, logger *logrus.Logger, addr, channel string) (*RedisBus, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address required")
	}
	if channel == "" {
		channel = "neothink:notifications"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisBus{
		logger:  logger,
		rdb:     rdb,
		channel: channel,
		hub:     NewHub(),
	}, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev types.ChangeEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode change event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) Subscribe(userID string, fn func(types.ChangeEvent)) func() {
	return b.hub.Subscribe(userID, fn)
}

// Start subscribes to the Redis channel and relays messages until ctx is
// cancelled.
func (b *RedisBus) Start(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev types.ChangeEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.logger.WithError(err).Warn("bad notification change payload")
					continue
				}
				b.hub.deliver(ev)
			}
		}
	}()

	return nil
}

func (b *RedisBus) Close() error {
	_ = b.hub.Close()
	return b.rdb.Close()
}
