package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status da aposta: PENDING -> WON | LOST (uma única transição, feita pelo settler)
type Status string

const (
	StatusPending Status = "PENDING"
	StatusWon     Status = "WON"
	StatusLost    Status = "LOST"
)

// Valid indica se o valor é um dos três status conhecidos
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWon, StatusLost:
		return true
	}
	return false
}

// Bet é o modelo persistido no Postgres (tabela bets).
// Invariante: SettledAt != nil  <=>  Status != PENDING
type Bet struct {
	ID                int64           `json:"betId"`
	UserID            string          `json:"userId"`
	EventID           string          `json:"eventId"`
	EventMarketID     string          `json:"eventMarketId"`
	PredictedWinnerID string          `json:"eventWinnerId"` // coluna event_winner_id: palpite do usuário
	Amount            decimal.Decimal `json:"betAmount"`
	Status            Status          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	SettledAt         *time.Time      `json:"settledAt,omitempty"`
}

// MarkWon marca a aposta como ganha no instante informado
func (b *Bet) MarkWon(at time.Time) {
	b.Status = StatusWon
	b.SettledAt = &at
}

// MarkLost marca a aposta como perdida no instante informado
func (b *Bet) MarkLost(at time.Time) {
	b.Status = StatusLost
	b.SettledAt = &at
}
