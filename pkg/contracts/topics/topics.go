package topics

const (
	// Outcomes (Kafka)
	EventOutcomes    = "event-outcomes"
	EventOutcomesDLQ = "event-outcomes-dlq"

	// Settlements (NATS JetStream)
	SettlementStream = "BET_SETTLEMENTS"
	BetSettlements   = "bet-settlements"

	// Redis
	BetSettledChannel = "bet_settled_broadcast"
)
