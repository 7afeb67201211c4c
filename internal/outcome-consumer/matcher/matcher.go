package matcher

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/bets/repo"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// ErrMatching indica falha inesperada ao ler apostas; a mensagem de origem não deve ser confirmada
var ErrMatching = errors.New("bet matching failed")

// Repo é o subconjunto do repositório de apostas usado pelo matcher (somente leitura)
type Repo interface {
	FindByEventAndStatus(ctx context.Context, eventID string, status repo.Status) ([]repo.Bet, error)
}

// Matcher decide ganho/perda de cada aposta pendente de um evento.
// Nunca altera apostas: a escrita de status é exclusiva do settler.
type Matcher struct {
	repo Repo
	log  *zap.Logger
}

func New(r Repo, log *zap.Logger) *Matcher {
	return &Matcher{repo: r, log: log}
}

// MatchBets busca as apostas PENDING do evento e gera uma decisão por aposta.
// Comparação exata (case-sensitive) entre palpite e vencedor; o mercado não entra na chave.
// Lista vazia não é erro.
func (m *Matcher) MatchBets(ctx context.Context, outcome events.EventOutcome) ([]events.BetSettlement, error) {
	bets, err := m.repo.FindByEventAndStatus(ctx, outcome.EventID, repo.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("%w: event %s: %v", ErrMatching, outcome.EventID, err)
	}

	if len(bets) == 0 {
		m.log.Warn("no pending bets for event", zap.String("event_id", outcome.EventID))
		return []events.BetSettlement{}, nil
	}

	out := make([]events.BetSettlement, 0, len(bets))
	won := 0
	for _, b := range bets {
		s := Decide(b, outcome)
		if s.Won {
			won++
		}
		m.log.Debug("bet matched",
			zap.Int64("bet_id", b.ID),
			zap.String("predicted", b.PredictedWinnerID),
			zap.String("actual", outcome.EventWinnerID),
			zap.String("result", s.Tag()),
		)
		out = append(out, s)
	}

	m.log.Info("bets matched",
		zap.String("event_id", outcome.EventID),
		zap.Int("total", len(out)),
		zap.Int("won", won),
		zap.Int("lost", len(out)-won),
	)
	return out, nil
}

// PendingBetCount retorna quantas apostas do evento ainda estão PENDING
func (m *Matcher) PendingBetCount(ctx context.Context, eventID string) (int, error) {
	bets, err := m.repo.FindByEventAndStatus(ctx, eventID, repo.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("%w: event %s: %v", ErrMatching, eventID, err)
	}
	return len(bets), nil
}

// Decide monta a decisão de uma aposta, preservando o palpite original para auditoria
func Decide(b repo.Bet, outcome events.EventOutcome) events.BetSettlement {
	return events.BetSettlement{
		BetID:             b.ID,
		UserID:            b.UserID,
		EventID:           b.EventID,
		EventMarketID:     b.EventMarketID,
		EventWinnerID:     outcome.EventWinnerID,
		PredictedWinnerID: b.PredictedWinnerID,
		BetAmount:         b.Amount,
		Won:               b.PredictedWinnerID == outcome.EventWinnerID,
	}
}
