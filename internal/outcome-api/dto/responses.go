package dto

import "time"

// APIResponse é o envelope padrão de sucesso/erro
type APIResponse struct {
	Message   string    `json:"message"`
	EventID   string    `json:"eventId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
}

// ValidationErrorResponse é devolvido com 400
type ValidationErrorResponse struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type WelcomeResponse struct {
	Application string            `json:"application"`
	Version     string            `json:"version"`
	Status      string            `json:"status"`
	Endpoints   map[string]string `json:"endpoints"`
}
