package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// KV é o subconjunto do cliente Redis usado pelo cache
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// OutcomeCache guarda o último resultado observado por evento
// Escrita: outcome-consumer. Leitura: outcome-api.
type OutcomeCache struct {
	Client KV
	TTL    time.Duration
}

func NewOutcomeCache(c KV, ttl time.Duration) *OutcomeCache {
	return &OutcomeCache{Client: c, TTL: ttl}
}

func outcomeKey(eventID string) string { return "outcome:last:" + eventID }

// SetLast armazena o resultado com TTL
func (c *OutcomeCache) SetLast(ctx context.Context, o events.EventOutcome) error {
	b, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, outcomeKey(o.EventID), b, c.TTL).Err()
}

// GetLast retorna (resultado, true) ou (zero, false) se não houver registro
func (c *OutcomeCache) GetLast(ctx context.Context, eventID string) (events.EventOutcome, bool, error) {
	var o events.EventOutcome
	b, err := c.Client.Get(ctx, outcomeKey(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return o, false, nil
	}
	if err != nil {
		return o, false, err
	}
	if err := json.Unmarshal(b, &o); err != nil {
		return o, false, err
	}
	return o, true, nil
}
