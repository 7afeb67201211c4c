package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/internal/outcome-consumer/matcher"
	"github.com/radieske/bet-settler/internal/outcome-consumer/relay"
	"github.com/radieske/bet-settler/internal/settlement/settler"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// pipeline monta matcher -> relay direto -> settler sobre o repositório em memória
func pipeline(store *repo.Memory) *Processor {
	log := zap.NewNop()
	s := settler.New(store, log, settler.WithClock(func() time.Time { return time.Now().Add(time.Second) }))
	return &Processor{
		Log:     log,
		Matcher: matcher.New(store, log),
		Relay:   relay.NewDirect(s),
	}
}

func placeBet(t *testing.T, store *repo.Memory, user, event, predicted string) int64 {
	t.Helper()
	b := repo.Bet{
		UserID:            user,
		EventID:           event,
		EventMarketID:     "MATCH_WINNER",
		PredictedWinnerID: predicted,
		Amount:            decimal.RequireFromString("50.00"),
	}
	require.NoError(t, store.Create(context.Background(), &b))
	return b.ID
}

func TestE2E_OneWinnerOneLoser(t *testing.T) {
	store := repo.NewMemory()
	betA := placeBet(t, store, "u1", "E1", "A")
	betB := placeBet(t, store, "u2", "E1", "B")

	p := pipeline(store)
	r := p.Handle(context.Background(), events.EventOutcome{EventID: "E1", EventName: "Final", EventWinnerID: "A"})
	assert.Equal(t, Ack, r)

	a, err := store.FindByID(context.Background(), betA)
	require.NoError(t, err)
	b, err := store.FindByID(context.Background(), betB)
	require.NoError(t, err)

	assert.Equal(t, repo.StatusWon, a.Status)
	assert.Equal(t, repo.StatusLost, b.Status)
	assert.NotNil(t, a.SettledAt)
	assert.NotNil(t, b.SettledAt)
}

func TestE2E_NoBetsLeavesTableUnchanged(t *testing.T) {
	store := repo.NewMemory()
	placeBet(t, store, "u1", "E1", "A")
	before := store.All()

	r := pipeline(store).Handle(context.Background(), events.EventOutcome{EventID: "E-unknown", EventWinnerID: "A"})

	assert.Equal(t, Ack, r)
	assert.Equal(t, before, store.All())
	assert.Equal(t, 0, store.Updates())
}

func TestE2E_TwoWinnersTwoLosers(t *testing.T) {
	store := repo.NewMemory()
	placeBet(t, store, "u1", "E2", "WA")
	placeBet(t, store, "u2", "E2", "WA")
	placeBet(t, store, "u3", "E2", "WB")
	placeBet(t, store, "u4", "E2", "WB")
	placeBet(t, store, "u5", "E3", "WA") // outro evento, fica PENDING

	assert.Equal(t, Ack, pipeline(store).Handle(context.Background(), events.EventOutcome{EventID: "E2", EventWinnerID: "WA"}))

	won, err := store.FindByEventAndStatus(context.Background(), "E2", repo.StatusWon)
	require.NoError(t, err)
	lost, err := store.FindByEventAndStatus(context.Background(), "E2", repo.StatusLost)
	require.NoError(t, err)
	assert.Len(t, won, 2)
	assert.Len(t, lost, 2)
	for _, b := range append(won, lost...) {
		require.NotNil(t, b.SettledAt)
		assert.True(t, b.SettledAt.After(b.CreatedAt))
	}

	other, err := store.FindByEventAndStatus(context.Background(), "E3", repo.StatusPending)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestE2E_ThroughKafkaLoop(t *testing.T) {
	store := repo.NewMemory()
	betA := placeBet(t, store, "u1", "E1", "A")
	betB := placeBet(t, store, "u2", "E1", "B")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{msgs: []kafka.Message{outcomeMsg(t, 0, events.EventOutcome{EventID: "E1", EventWinnerID: "B"})}, cancel: cancel}

	p := pipeline(store)
	p.Reader = reader
	assert.ErrorIs(t, p.Run(ctx), context.Canceled)

	a, _ := store.FindByID(context.Background(), betA)
	b, _ := store.FindByID(context.Background(), betB)
	assert.Equal(t, repo.StatusLost, a.Status)
	assert.Equal(t, repo.StatusWon, b.Status)
	assert.Len(t, reader.committed, 1)
}

// Re-processar o mesmo resultado não encontra mais apostas PENDING: nada é reenviado
func TestE2E_ReplayAfterSettlementIsNoop(t *testing.T) {
	store := repo.NewMemory()
	placeBet(t, store, "u1", "E1", "A")
	p := pipeline(store)
	o := events.EventOutcome{EventID: "E1", EventWinnerID: "A"}

	require.Equal(t, Ack, p.Handle(context.Background(), o))
	require.Equal(t, Ack, p.Handle(context.Background(), o))

	assert.Equal(t, 1, store.Updates())
}
