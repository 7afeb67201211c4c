package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) FindByEventAndStatus(ctx context.Context, eventID string, status repo.Status) ([]repo.Bet, error) {
	args := m.Called(ctx, eventID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repo.Bet), args.Error(1)
}

func pendingBet(id int64, event, predicted string) repo.Bet {
	return repo.Bet{
		ID:                id,
		UserID:            "user-1",
		EventID:           event,
		EventMarketID:     "MATCH_WINNER",
		PredictedWinnerID: predicted,
		Amount:            decimal.RequireFromString("10.00"),
		Status:            repo.StatusPending,
	}
}

func TestMatchBets_NoPendingBets(t *testing.T) {
	ctx := context.Background()
	r := new(MockRepo)
	r.On("FindByEventAndStatus", ctx, "E1", repo.StatusPending).Return([]repo.Bet{}, nil)

	got, err := New(r, zap.NewNop()).MatchBets(ctx, events.EventOutcome{EventID: "E1", EventWinnerID: "A"})

	require.NoError(t, err)
	assert.Empty(t, got)
	r.AssertExpectations(t)
}

func TestMatchBets_ExactStringEquality(t *testing.T) {
	ctx := context.Background()
	r := new(MockRepo)
	r.On("FindByEventAndStatus", ctx, "E1", repo.StatusPending).Return([]repo.Bet{
		pendingBet(1, "E1", "A"),
		pendingBet(2, "E1", "B"),
		pendingBet(3, "E1", "a"),  // case-sensitive
		pendingBet(4, "E1", "A "), // sem trim
	}, nil)

	got, err := New(r, zap.NewNop()).MatchBets(ctx, events.EventOutcome{EventID: "E1", EventName: "Final", EventWinnerID: "A"})
	require.NoError(t, err)
	require.Len(t, got, 4)

	won := map[int64]bool{}
	for _, s := range got {
		won[s.BetID] = s.Won
		assert.Equal(t, "A", s.EventWinnerID)
		assert.Equal(t, "E1", s.EventID)
		assert.Equal(t, "MATCH_WINNER", s.EventMarketID)
	}
	assert.Equal(t, map[int64]bool{1: true, 2: false, 3: false, 4: false}, won)
}

func TestMatchBets_PreservesPredictedWinnerAndAmount(t *testing.T) {
	ctx := context.Background()
	b := pendingBet(7, "E1", "B")
	b.Amount = decimal.RequireFromString("99.99")
	r := new(MockRepo)
	r.On("FindByEventAndStatus", ctx, "E1", repo.StatusPending).Return([]repo.Bet{b}, nil)

	got, err := New(r, zap.NewNop()).MatchBets(ctx, events.EventOutcome{EventID: "E1", EventWinnerID: "A"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "B", got[0].PredictedWinnerID)
	assert.Equal(t, "user-1", got[0].UserID)
	assert.True(t, b.Amount.Equal(got[0].BetAmount))
	assert.Equal(t, events.TagLost, got[0].Tag())
}

func TestMatchBets_RepoFailureIsMatchingError(t *testing.T) {
	ctx := context.Background()
	r := new(MockRepo)
	r.On("FindByEventAndStatus", ctx, "E1", repo.StatusPending).Return(nil, errors.New("connection reset"))

	got, err := New(r, zap.NewNop()).MatchBets(ctx, events.EventOutcome{EventID: "E1", EventWinnerID: "A"})

	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrMatching)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPendingBetCount(t *testing.T) {
	ctx := context.Background()
	r := new(MockRepo)
	r.On("FindByEventAndStatus", ctx, "E1", repo.StatusPending).Return([]repo.Bet{
		pendingBet(1, "E1", "A"),
		pendingBet(2, "E1", "B"),
	}, nil)

	n, err := New(r, zap.NewNop()).PendingBetCount(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
