package settler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BetSettled(ctx context.Context, n events.BetSettled) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func seed(t *testing.T, store *repo.Memory, event, predicted string) repo.Bet {
	t.Helper()
	b := repo.Bet{
		UserID:            "user-1",
		EventID:           event,
		EventMarketID:     "MATCH_WINNER",
		PredictedWinnerID: predicted,
		Amount:            decimal.RequireFromString("25.00"),
	}
	require.NoError(t, store.Create(context.Background(), &b))
	return b
}

func later() time.Time { return time.Now().Add(time.Second) }

func TestSettle_Won(t *testing.T) {
	store := repo.NewMemory()
	b := seed(t, store, "E1", "A")

	s := New(store, zap.NewNop(), WithClock(later))
	require.NoError(t, s.Settle(context.Background(), events.BetSettlement{BetID: b.ID, Won: true}))

	got, err := s.GetBet(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusWon, got.Status)
	require.NotNil(t, got.SettledAt)
	assert.True(t, got.SettledAt.After(got.CreatedAt))
}

func TestSettle_Lost(t *testing.T) {
	store := repo.NewMemory()
	b := seed(t, store, "E1", "B")

	s := New(store, zap.NewNop(), WithClock(later))
	require.NoError(t, s.Settle(context.Background(), events.BetSettlement{BetID: b.ID, Won: false}))

	got, err := s.GetBet(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusLost, got.Status)
	require.NotNil(t, got.SettledAt)
	assert.True(t, got.SettledAt.After(got.CreatedAt))
}

func TestSettle_UnknownBet(t *testing.T) {
	store := repo.NewMemory()
	seed(t, store, "E1", "A")

	err := New(store, zap.NewNop()).Settle(context.Background(), events.BetSettlement{BetID: 999, Won: true})

	assert.ErrorIs(t, err, ErrBetNotFound)
	assert.Equal(t, 0, store.Updates(), "no write for unknown bet")
	for _, b := range store.All() {
		assert.Equal(t, repo.StatusPending, b.Status)
	}
}

// Reaplicar uma decisão conflitante sobrescreve o status anterior
func TestSettle_ResettlingOverwrites(t *testing.T) {
	store := repo.NewMemory()
	b := seed(t, store, "E1", "A")

	first := time.Now().Add(time.Second)
	second := first.Add(time.Minute)
	clock := first
	s := New(store, zap.NewNop(), WithClock(func() time.Time { return clock }))

	require.NoError(t, s.Settle(context.Background(), events.BetSettlement{BetID: b.ID, Won: true}))
	clock = second
	require.NoError(t, s.Settle(context.Background(), events.BetSettlement{BetID: b.ID, Won: false}))

	got, err := s.GetBet(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusLost, got.Status)
	assert.True(t, second.UTC().Equal(*got.SettledAt))
	assert.Equal(t, 2, store.Updates())
}

func TestSettle_NotifiesAfterCommit(t *testing.T) {
	store := repo.NewMemory()
	b := seed(t, store, "E1", "A")
	at := time.Now().Add(time.Second).UTC()

	n := new(MockNotifier)
	n.On("BetSettled", mock.Anything, events.BetSettled{
		BetID: b.ID, UserID: "user-1", EventID: "E1", Status: "WON", SettledAt: at,
	}).Return(nil).Once()

	s := New(store, zap.NewNop(), WithClock(func() time.Time { return at }), WithNotifier(n))
	require.NoError(t, s.Settle(context.Background(), events.BetSettlement{BetID: b.ID, Won: true}))

	n.AssertExpectations(t)
}

func TestSettle_NotifierFailureIsNotReturned(t *testing.T) {
	store := repo.NewMemory()
	b := seed(t, store, "E1", "A")

	n := new(MockNotifier)
	n.On("BetSettled", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	s := New(store, zap.NewNop(), WithClock(later), WithNotifier(n))
	require.NoError(t, s.Settle(context.Background(), events.BetSettlement{BetID: b.ID, Won: false}))

	got, err := s.GetBet(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, repo.StatusLost, got.Status)
}

func TestSettle_NoNotificationWhenBetMissing(t *testing.T) {
	n := new(MockNotifier)
	s := New(repo.NewMemory(), zap.NewNop(), WithNotifier(n))

	err := s.Settle(context.Background(), events.BetSettlement{BetID: 1, Won: true})

	assert.ErrorIs(t, err, ErrBetNotFound)
	n.AssertNotCalled(t, "BetSettled", mock.Anything, mock.Anything)
}

func TestGetBet_NotFound(t *testing.T) {
	_, err := New(repo.NewMemory(), zap.NewNop()).GetBet(context.Background(), 7)
	assert.ErrorIs(t, err, ErrBetNotFound)
}
