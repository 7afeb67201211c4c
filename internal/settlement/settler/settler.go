package settler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// ErrBetNotFound indica que a aposta referenciada pela liquidação não existe
var ErrBetNotFound = errors.New("bet not found")

// Repo é o subconjunto do repositório usado pelo settler
type Repo interface {
	FindByID(ctx context.Context, id int64) (*repo.Bet, error)
	UpdateInTx(ctx context.Context, id int64, fn func(b *repo.Bet) error) error
}

// Notifier recebe a notificação pós-commit (ex.: Redis Pub/Sub)
type Notifier interface {
	BetSettled(ctx context.Context, n events.BetSettled) error
}

// Settler é o único componente que altera o status de uma aposta
type Settler struct {
	repo     Repo
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Settler)

// WithClock injeta o relógio usado para settled_at
func WithClock(now func() time.Time) Option {
	return func(s *Settler) { s.now = now }
}

// WithNotifier habilita o broadcast de BetSettled após o commit
func WithNotifier(n Notifier) Option {
	return func(s *Settler) { s.notifier = n }
}

func New(r Repo, log *zap.Logger, opts ...Option) *Settler {
	s := &Settler{repo: r, now: time.Now, log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Settle aplica a decisão em uma única transação (SELECT ... FOR UPDATE + UPDATE).
// Não há guarda de PENDING: reaplicar uma decisão sobrescreve status e settled_at.
func (s *Settler) Settle(ctx context.Context, d events.BetSettlement) error {
	var settled repo.Bet
	err := s.repo.UpdateInTx(ctx, d.BetID, func(b *repo.Bet) error {
		at := s.now().UTC()
		if d.Won {
			b.MarkWon(at)
		} else {
			b.MarkLost(at)
		}
		settled = *b
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		s.log.Warn("bet not found for settlement", zap.Int64("bet_id", d.BetID))
		return fmt.Errorf("%w: %d", ErrBetNotFound, d.BetID)
	}
	if err != nil {
		return fmt.Errorf("settle bet %d: %w", d.BetID, err)
	}

	s.log.Info("bet settled",
		zap.Int64("bet_id", settled.ID),
		zap.String("event_id", settled.EventID),
		zap.String("status", string(settled.Status)),
	)

	if s.notifier != nil {
		n := events.BetSettled{
			BetID:     settled.ID,
			UserID:    settled.UserID,
			EventID:   settled.EventID,
			Status:    string(settled.Status),
			SettledAt: *settled.SettledAt,
		}
		// aposta já está persistida; falha aqui só é registrada
		if err := s.notifier.BetSettled(ctx, n); err != nil {
			s.log.Warn("bet settled broadcast failed", zap.Int64("bet_id", settled.ID), zap.Error(err))
		}
	}
	return nil
}

// GetBet retorna a aposta ou ErrBetNotFound
func (s *Settler) GetBet(ctx context.Context, id int64) (*repo.Bet, error) {
	b, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrBetNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
