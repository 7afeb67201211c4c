package events

// EventOutcome é o resultado oficial de um evento esportivo.
// Publicado no tópico "event-outcomes" com chave = EventID.
type EventOutcome struct {
	EventID       string `json:"eventId"`
	EventName     string `json:"eventName"`
	EventWinnerID string `json:"eventWinnerId"`
}
