package events

import "time"

// Notificação emitida pelo settler após persistir a liquidação (Redis Pub/Sub).
type BetSettled struct {
	BetID     int64     `json:"betId"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	Status    string    `json:"status"` // "WON" | "LOST"
	SettledAt time.Time `json:"settledAt"`
}
