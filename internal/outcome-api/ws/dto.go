package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
type ClientMsg struct {
	Type    string `json:"type"`    // subscribe | unsubscribe | ping
	EventID string `json:"eventId"` // requerido em subscribe/unsubscribe
}

// ServerMsg é o envelope enviado aos clientes
type ServerMsg struct {
	Type    string      `json:"type"` // bet_settled | pong | error
	EventID string      `json:"eventId,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}
