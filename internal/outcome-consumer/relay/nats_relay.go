package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

const (
	HeaderBetID = "Bet-Id"
	HeaderTag   = "Settlement-Tag"
)

// Publisher é o subconjunto de nats.JetStreamContext usado pelo relay
type Publisher interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSRelay publica cada decisão no JetStream em "<prefix>.WON" ou "<prefix>.LOST"
type NATSRelay struct {
	js      Publisher
	prefix  string
	timeout time.Duration
	log     *zap.Logger
}

func NewNATS(js Publisher, subjectPrefix string, timeout time.Duration, log *zap.Logger) *NATSRelay {
	return &NATSRelay{js: js, prefix: subjectPrefix, timeout: timeout, log: log}
}

// Subject monta o subject de uma decisão
func (r *NATSRelay) Subject(d events.BetSettlement) string {
	return r.prefix + "." + d.Tag()
}

func (r *NATSRelay) Send(ctx context.Context, d events.BetSettlement) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: marshal bet %d: %v", ErrDelivery, d.BetID, err)
	}

	msg := nats.NewMsg(r.Subject(d))
	msg.Data = body
	msg.Header.Set(HeaderBetID, strconv.FormatInt(d.BetID, 10))
	msg.Header.Set(HeaderTag, d.Tag())
	// identidade da mensagem (dedupe do JetStream por janela), não da aposta
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ack, err := r.js.PublishMsg(msg, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("%w: bet %d on %s: %v", ErrDelivery, d.BetID, msg.Subject, err)
	}

	r.log.Debug("settlement published",
		zap.Int64("bet_id", d.BetID),
		zap.String("subject", msg.Subject),
		zap.String("stream", ack.Stream),
		zap.Uint64("seq", ack.Sequence),
	)
	return nil
}
