package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/internal/outcome-consumer/relay"
	"github.com/radieske/bet-settler/pkg/contracts/events"
)

const HeaderError = "error"

var errPoison = errors.New("undecodable event outcome")

// Reader é o subconjunto do kafka.Reader com commit manual
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DLQWriter recebe mensagens que esgotaram as reentregas ou não puderam ser decodificadas
type DLQWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Matcher interface {
	MatchBets(ctx context.Context, o events.EventOutcome) ([]events.BetSettlement, error)
}

type OutcomeCache interface {
	SetLast(ctx context.Context, o events.EventOutcome) error
}

// Processor consome resultados do Kafka, faz o matching das apostas e
// repassa cada decisão ao relay. Processa uma mensagem por vez: a próxima
// só é buscada depois da decisão final (commit ou DLQ) da anterior.
type Processor struct {
	Log     *zap.Logger
	Reader  Reader
	Matcher Matcher
	Relay   relay.Relay
	Cache   OutcomeCache // opcional
	DLQ     DLQWriter    // opcional; sem DLQ a mensagem é descartada após as reentregas

	// kafka-go não tem nack por mensagem: reentrega emulada em processo
	MaxRedeliveries   int
	RedeliveryBackoff time.Duration

	OnConsumed     func()       // métricas (counter++)
	OnMatched      func(int)    // qtd de decisões
	OnSent         func()       // envio ok
	OnSendFailed   func()       // envio falhou
	OnResult       func(Result) // decisão de ack
	OnDeadLettered func(string) // motivo: decode | matching
	OnError        func(string) // métricas por fase
}

// Handle executa Matcher -> Relay para um resultado e devolve a decisão de ack.
// Cada envio é isolado: falha em um não impede os demais.
func (p *Processor) Handle(ctx context.Context, o events.EventOutcome) Result {
	log := p.Log.With(zap.String("event_id", o.EventID), zap.String("winner_id", o.EventWinnerID))

	decisions, err := p.Matcher.MatchBets(ctx, o)
	if err != nil {
		log.Error("bet matching failed", zap.Error(err))
		p.phaseError("match")
		return Decide(err, 0)
	}
	if p.OnMatched != nil {
		p.OnMatched(len(decisions))
	}

	if p.Cache != nil {
		if err := p.Cache.SetLast(ctx, o); err != nil {
			log.Warn("redis set failed", zap.Error(err))
			p.phaseError("cache")
			// cache não bloqueia a liquidação
		}
	}

	failed := 0
	for _, d := range decisions {
		if err := p.Relay.Send(ctx, d); err != nil {
			failed++
			log.Error("settlement send failed",
				zap.Int64("bet_id", d.BetID),
				zap.String("result", d.Tag()),
				zap.Error(err),
			)
			if p.OnSendFailed != nil {
				p.OnSendFailed()
			}
			continue
		}
		if p.OnSent != nil {
			p.OnSent()
		}
	}

	r := Decide(nil, failed)
	log.Info("event outcome processed",
		zap.Int("bets", len(decisions)),
		zap.Int("failed_sends", failed),
		zap.Stringer("result", r),
	)
	return r
}

// Run inicia o loop principal de consumo. Retorna apenas quando o contexto é cancelado.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // encerra se o contexto for cancelado
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.phaseError("fetch")
			if err := sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed() // callback de métrica: mensagem consumida
		}

		if err := p.process(ctx, m); err != nil {
			// contexto cancelado no meio: mensagem fica sem commit e volta no próximo start
			return err
		}
	}
}

func (p *Processor) process(ctx context.Context, m kafka.Message) error {
	o, err := decode(m.Value)
	if err != nil {
		p.Log.Warn("invalid message",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err),
		)
		p.phaseError("decode")
		if err := p.deadLetter(ctx, m, "decode", err); err != nil {
			return err
		}
		return p.commit(ctx, m)
	}

	for attempt := 0; ; attempt++ {
		r := p.Handle(ctx, o)
		if p.OnResult != nil {
			p.OnResult(r)
		}
		if r.Acked() {
			return p.commit(ctx, m)
		}

		if attempt >= p.MaxRedeliveries {
			p.Log.Error("event outcome redeliveries exhausted",
				zap.String("event_id", o.EventID),
				zap.Int("attempts", attempt+1),
			)
			if err := p.deadLetter(ctx, m, "matching", errors.New("bet matching failed after "+strconv.Itoa(attempt+1)+" attempts")); err != nil {
				return err
			}
			return p.commit(ctx, m)
		}

		p.Log.Warn("redelivering event outcome",
			zap.String("event_id", o.EventID),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", p.RedeliveryBackoff),
		)
		if err := sleep(ctx, p.RedeliveryBackoff); err != nil {
			return err
		}
	}
}

func (p *Processor) commit(ctx context.Context, m kafka.Message) error {
	if err := p.Reader.CommitMessages(ctx, m); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// sem commit a mensagem volta após rebalance (at-least-once)
		p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		p.phaseError("commit")
	}
	return nil
}

// deadLetter insiste até o contexto ser cancelado: commitar sem estacionar a mensagem a perderia
func (p *Processor) deadLetter(ctx context.Context, m kafka.Message, reason string, cause error) error {
	if p.OnDeadLettered != nil {
		p.OnDeadLettered(reason)
	}
	if p.DLQ == nil {
		p.Log.Error("dropping event outcome (no dlq configured)", zap.String("reason", reason), zap.Int64("offset", m.Offset))
		return nil
	}

	dlq := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header{}, m.Headers...),
			kafka.Header{Key: HeaderError, Value: []byte(cause.Error())},
		),
	}
	for {
		err := p.DLQ.WriteMessages(ctx, dlq)
		if err == nil {
			p.Log.Warn("event outcome dead-lettered", zap.String("reason", reason), zap.ByteString("key", m.Key))
			return nil
		}
		p.Log.Error("dlq write failed", zap.Error(err))
		p.phaseError("dlq")
		if err := sleep(ctx, p.backoff()); err != nil {
			return err
		}
	}
}

func (p *Processor) backoff() time.Duration {
	if p.RedeliveryBackoff > 0 {
		return p.RedeliveryBackoff
	}
	return 500 * time.Millisecond
}

func (p *Processor) phaseError(phase string) {
	if p.OnError != nil {
		p.OnError(phase)
	}
}

func decode(b []byte) (events.EventOutcome, error) {
	var o events.EventOutcome
	if err := json.Unmarshal(b, &o); err != nil {
		return o, errors.Join(errPoison, err)
	}
	if o.EventID == "" || o.EventWinnerID == "" {
		return o, errors.Join(errPoison, errors.New("eventId and eventWinnerId are required"))
	}
	return o, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
