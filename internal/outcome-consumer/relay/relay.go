package relay

import (
	"context"
	"errors"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// ErrDelivery indica falha ao entregar uma decisão de liquidação
var ErrDelivery = errors.New("settlement delivery failed")

// Relay entrega uma decisão ao settler: via broker (NATS JetStream) ou em processo.
// A estratégia é escolhida uma única vez na inicialização.
type Relay interface {
	Send(ctx context.Context, d events.BetSettlement) error
}

// Settler é o que o relay direto invoca
type Settler interface {
	Settle(ctx context.Context, d events.BetSettlement) error
}

// DirectRelay chama o settler de forma síncrona, sem segundo broker
type DirectRelay struct {
	settler Settler
}

func NewDirect(s Settler) *DirectRelay { return &DirectRelay{settler: s} }

func (r *DirectRelay) Send(ctx context.Context, d events.BetSettlement) error {
	return r.settler.Settle(ctx, d)
}
