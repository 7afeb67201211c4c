package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// Publisher é o subconjunto do cliente Redis usado para broadcast
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBroadcaster publica BetSettled no canal de broadcast consumido pela API (websocket)
type RedisBroadcaster struct {
	r       Publisher
	channel string
}

func NewRedisBroadcaster(r Publisher, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

// BetSettled serializa e publica a notificação
func (b *RedisBroadcaster) BetSettled(ctx context.Context, n events.BetSettled) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal bet settled: %w", err)
	}
	if err := b.r.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", b.channel, err)
	}
	return nil
}
