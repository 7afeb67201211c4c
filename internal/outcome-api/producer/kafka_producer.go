package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

// ErrDelivery indica falha ao entregar o resultado ao tópico de outcomes
var ErrDelivery = errors.New("outcome delivery failed")

// Writer é o subconjunto do kafka.Writer usado pelo producer
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publica EventOutcome com chave = EventID.
// Com o balancer Hash, todas as mensagens de um evento caem na mesma partição.
type KafkaPublisher struct {
	writer Writer
	topic  string
	log    *zap.Logger
}

func NewKafkaPublisher(w Writer, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topic: topic, log: log}
}

// Publish serializa o resultado e envia ao tópico.
// Em modo async o retorno nil só indica enfileiramento; a confirmação vem no Completion.
func (p *KafkaPublisher) Publish(ctx context.Context, o events.EventOutcome) error {
	msg, err := Message(o)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish event outcome",
			zap.String("topic", p.topic),
			zap.String("event_id", o.EventID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: event %s: %v", ErrDelivery, o.EventID, err)
	}

	p.log.Info("event outcome published",
		zap.String("topic", p.topic),
		zap.String("event_id", o.EventID),
		zap.String("winner_id", o.EventWinnerID),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message monta a mensagem Kafka de um resultado
func Message(o events.EventOutcome) (kafka.Message, error) {
	value, err := json.Marshal(o)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal outcome: %w", err)
	}
	return kafka.Message{
		Key:   []byte(o.EventID),
		Value: value,
		Time:  time.Now(),
	}, nil
}

// CompletionLogger gera o callback de Completion do writer assíncrono:
// registra o resultado diferido de cada mensagem e alimenta as métricas
func CompletionLogger(log *zap.Logger, onDelivered func(), onFailed func()) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		for _, m := range msgs {
			if err != nil {
				log.Error("event outcome delivery failed",
					zap.String("topic", m.Topic),
					zap.String("event_id", string(m.Key)),
					zap.Error(err),
				)
				if onFailed != nil {
					onFailed()
				}
				continue
			}
			log.Debug("event outcome delivered",
				zap.String("topic", m.Topic),
				zap.String("event_id", string(m.Key)),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
			if onDelivered != nil {
				onDelivered()
			}
		}
	}
}
