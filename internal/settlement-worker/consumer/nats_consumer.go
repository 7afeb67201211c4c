package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/settlement/settler"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// Disposition é o que foi feito com a mensagem no JetStream
type Disposition string

const (
	Acked  Disposition = "ack"
	Nakked Disposition = "nak"  // JetStream reentrega até MaxDeliver
	Termed Disposition = "term" // mensagem inválida, não reentrega
)

// Acker cobre os métodos de confirmação de *nats.Msg
type Acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
	Term(opts ...nats.AckOpt) error
}

type Settler interface {
	Settle(ctx context.Context, d events.BetSettlement) error
}

// Subscriber é o subconjunto de nats.JetStreamContext usado para assinar
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler, opts ...nats.SubOpt) (*nats.Subscription, error)
}

// SubscribeConfig descreve o consumer durável
type SubscribeConfig struct {
	Subject    string // ex.: "bet-settlements.*"
	Durable    string
	MaxDeliver int
	AckWait    time.Duration
}

// Worker consome decisões de liquidação e aplica cada uma via settler
type Worker struct {
	Log     *zap.Logger
	Settler Settler

	OnReceived func()            // métricas
	OnHandled  func(Disposition) // métricas por desfecho
}

// Subscribe registra a assinatura push durável com ack manual
func (w *Worker) Subscribe(ctx context.Context, js Subscriber, cfg SubscribeConfig) (*nats.Subscription, error) {
	sub, err := js.Subscribe(cfg.Subject,
		func(msg *nats.Msg) { w.Handle(ctx, msg.Data, msg) },
		nats.Durable(cfg.Durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(cfg.MaxDeliver),
		nats.AckWait(cfg.AckWait),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", cfg.Subject, err)
	}
	w.Log.Info("subscribed to settlements",
		zap.String("subject", cfg.Subject),
		zap.String("durable", cfg.Durable),
		zap.Int("max_deliver", cfg.MaxDeliver),
	)
	return sub, nil
}

// Handle decodifica e liquida; sucesso => Ack, payload inválido => Term, falha => Nak
func (w *Worker) Handle(ctx context.Context, data []byte, msg Acker) Disposition {
	if w.OnReceived != nil {
		w.OnReceived()
	}

	var d events.BetSettlement
	if err := json.Unmarshal(data, &d); err != nil || d.BetID == 0 {
		w.Log.Warn("invalid settlement message", zap.ByteString("payload", data), zap.Error(err))
		w.finish(Termed, msg.Term())
		return Termed
	}

	if err := w.Settler.Settle(ctx, d); err != nil {
		lvl := w.Log.Error
		if errors.Is(err, settler.ErrBetNotFound) {
			lvl = w.Log.Warn
		}
		lvl("settlement failed", zap.Int64("bet_id", d.BetID), zap.String("result", d.Tag()), zap.Error(err))
		w.finish(Nakked, msg.Nak())
		return Nakked
	}

	w.finish(Acked, msg.Ack())
	return Acked
}

func (w *Worker) finish(d Disposition, err error) {
	if err != nil {
		w.Log.Error("failed to "+string(d)+" message", zap.Error(err))
	}
	if w.OnHandled != nil {
		w.OnHandled(d)
	}
}
