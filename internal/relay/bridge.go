// Package relay provides the optional cross-instance fan-out backend used
// when several relay processes share room traffic.
package relay

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// roomChannelPrefix namespaces the shared pub/sub channels, one per room key.
const roomChannelPrefix = "relay:room:"

// ErrBridgeDisabled marks the no-op bridge: publishing is not an error, the
// caller should just deliver locally.
var ErrBridgeDisabled = errors.New("bridge disabled")

// Bridge mirrors room emits across relay instances. Publish sends an encoded
// frame on the channel named by the room key; Subscribe registers the handler
// invoked for every frame published on any room channel, local publishes
// included.
type Bridge interface {
	Publish(room string, frame []byte) error
	Subscribe(handler func(room string, frame []byte)) error
	Close() error
}

// NewBridge selects the bridge implementation: a Redis-backed one when a
// connection string is configured, otherwise the in-process no-op.
func NewBridge(ctx context.Context, redisURL string, log *zap.Logger) (Bridge, error) {
	if redisURL == "" {
		return noopBridge{}, nil
	}
	return newRedisBridge(ctx, redisURL, log)
}

// noopBridge is the single-instance bridge: every publish reports
// ErrBridgeDisabled so the registry delivers locally itself.
type noopBridge struct{}

func (noopBridge) Publish(string, []byte) error                    { return ErrBridgeDisabled }
func (noopBridge) Subscribe(func(room string, frame []byte)) error { return nil }
func (noopBridge) Close() error                                    { return nil }

// redisBridge shares room traffic through Redis pub/sub, the same shape as
// presence sharing in multi-gateway chat deployments.
type redisBridge struct {
	client *redis.Client
	sub    *redis.PubSub
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func newRedisBridge(ctx context.Context, redisURL string, log *zap.Logger) (*redisBridge, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	bctx, bcancel := context.WithCancel(ctx)
	return &redisBridge{client: client, log: log, ctx: bctx, cancel: bcancel}, nil
}

func (b *redisBridge) Publish(room string, frame []byte) error {
	return b.client.Publish(b.ctx, roomChannelPrefix+room, frame).Err()
}

// Subscribe starts a pattern subscription over every room channel and feeds
// received frames to the handler until the bridge is closed.
func (b *redisBridge) Subscribe(handler func(room string, frame []byte)) error {
	b.sub = b.client.PSubscribe(b.ctx, roomChannelPrefix+"*")

	// Force the subscription onto the wire before any publish can race it.
	if _, err := b.sub.Receive(b.ctx); err != nil {
		_ = b.sub.Close()
		return err
	}

	ch := b.sub.Channel()
	go func() {
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					b.log.Warn("bridge subscription closed")
					return
				}
				room := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
				handler(room, []byte(msg.Payload))
			}
		}
	}()
	return nil
}

func (b *redisBridge) Close() error {
	b.cancel()
	if b.sub != nil {
		_ = b.sub.Close()
	}
	return b.client.Close()
}
