package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestBetSettled_PublishesJSONOnChannel(t *testing.T) {
	pub := &fakePublisher{}
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	err := NewRedisBroadcaster(pub, "bet_settled_broadcast").BetSettled(context.Background(), events.BetSettled{
		BetID: 42, UserID: "u1", EventID: "E1", Status: "WON", SettledAt: at,
	})
	require.NoError(t, err)

	assert.Equal(t, "bet_settled_broadcast", pub.channel)
	var got events.BetSettled
	require.NoError(t, json.Unmarshal(pub.payload, &got))
	assert.Equal(t, int64(42), got.BetID)
	assert.Equal(t, "WON", got.Status)
	assert.True(t, at.Equal(got.SettledAt))
}

func TestBetSettled_WrapsRedisError(t *testing.T) {
	boom := errors.New("redis down")
	err := NewRedisBroadcaster(&fakePublisher{err: boom}, "c").BetSettled(context.Background(), events.BetSettled{BetID: 1})
	assert.ErrorIs(t, err, boom)
}
