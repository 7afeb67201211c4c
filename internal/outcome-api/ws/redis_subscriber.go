package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de BetSettled e repassa ao Hub.
// Roda em goroutine própria até o contexto ser cancelado.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	log.Info("redis subscriber started", zap.String("channel", channel))
	go func() {
		defer sub.Close() // encerra a inscrição ao finalizar o contexto
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				dispatch(hub, msg.Payload, log)
			}
		}
	}()
}

func dispatch(hub *Hub, payload string, log *zap.Logger) {
	var n events.BetSettled
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		log.Warn("ws subscriber unmarshal error", zap.Error(err))
		return
	}
	hub.Broadcast(n)
}
