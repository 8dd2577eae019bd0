package checker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hazz-dev/conncheck/internal/config"
)

const (
	valkeyService = "Valkey"
	valkeyClient  = "go-redis"

	valkeyKeyTTL = 30 * time.Second
)

type valkeyChecker struct {
	cfg       config.Valkey
	gate      Gate
	newClient func(*redis.Options) *redis.Client
}

func newValkeyChecker(cfg config.Valkey, opts Options) *valkeyChecker {
	return &valkeyChecker{
		cfg:       cfg,
		gate:      opts.gate(cfg.Flag(), cfg.Enabled(), cfg.Host, cfg.Port),
		newClient: redis.NewClient,
	}
}

func (c *valkeyChecker) Service() string { return valkeyService }

func (c *valkeyChecker) Target() Target { return c.gate.target(valkeyService, valkeyClient) }

func (c *valkeyChecker) Check(ctx context.Context) Result {
	return gated(ctx, c.gate, valkeyService, valkeyClient, c.roundTrip)
}

func (c *valkeyChecker) roundTrip(ctx context.Context) (string, error) {
	client := c.newClient(&redis.Options{
		Addr:        net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)),
		Password:    c.cfg.Password,
		DialTimeout: 5 * time.Second,
	})
	defer client.Close()

	payload := uuid.NewString()
	key := "health:" + payload

	if err := client.Set(ctx, key, payload, valkeyKeyTTL).Err(); err != nil {
		return "", fmt.Errorf("setting %s: %w", key, err)
	}
	value, err := client.Get(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("getting %s: %w", key, err)
	}
	if err := client.Del(ctx, key).Err(); err != nil {
		return "", fmt.Errorf("deleting %s: %w", key, err)
	}

	if value != payload {
		return "", Failf(KindValueMismatch, "unexpected payload %q for %s", value, key)
	}
	return fmt.Sprintf("SET/GET on %s succeeded", key), nil
}
