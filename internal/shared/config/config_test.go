package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "outcome-consumer")
	t.Setenv("ENV", "prod")

	cfg := Load()

	assert.Equal(t, "outcome-consumer", cfg.ServiceName)
	assert.Equal(t, "event-outcomes", cfg.TopicEventOutcomes)
	assert.Equal(t, "event-outcomes-dlq", cfg.TopicEventOutcomesDLQ)
	assert.Equal(t, "BET_SETTLEMENTS", cfg.StreamSettlements)
	assert.Equal(t, "bet-settlements", cfg.SubjectSettlements)
	assert.False(t, cfg.SettlementBrokerEnabled, "direct relay is the default")
	assert.False(t, cfg.KafkaAutoCreateTopics)
	assert.Equal(t, 3*time.Second, cfg.SettlementSendTimeout)
	assert.Equal(t, 3, cfg.OutcomeMaxRedeliveries)
	assert.Equal(t, "", cfg.HTTPPort)
	assert.Equal(t, "9096", cfg.MetricsPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "outcome-api")
	t.Setenv("ENV", "local")
	t.Setenv("SETTLEMENT_BROKER_ENABLED", "true")
	t.Setenv("KAFKA_TOPIC_EVENT_OUTCOMES", "outcomes-v2")
	t.Setenv("SETTLEMENT_SEND_TIMEOUT", "750ms")
	t.Setenv("OUTCOME_MAX_REDELIVERIES", "5")
	t.Setenv("HTTP_PORT_API", "18080")

	cfg := Load()

	assert.True(t, cfg.SettlementBrokerEnabled)
	assert.True(t, cfg.KafkaAutoCreateTopics, "local env creates topics by default")
	assert.Equal(t, "outcomes-v2", cfg.TopicEventOutcomes)
	assert.Equal(t, 750*time.Millisecond, cfg.SettlementSendTimeout)
	assert.Equal(t, 5, cfg.OutcomeMaxRedeliveries)
	assert.Equal(t, "18080", cfg.HTTPPort)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SETTLEMENT_BROKER_ENABLED", "maybe")
	t.Setenv("OUTCOME_MAX_REDELIVERIES", "many")
	t.Setenv("KAFKA_WRITE_TIMEOUT", "soon")

	cfg := Load()

	assert.False(t, cfg.SettlementBrokerEnabled)
	assert.Equal(t, 3, cfg.OutcomeMaxRedeliveries)
	assert.Equal(t, 3*time.Second, cfg.KafkaWriteTimeout)
}
