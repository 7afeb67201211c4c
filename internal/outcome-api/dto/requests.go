package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/radieske/bet-settler/pkg/contracts/events"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	// erros reportados pelo nome do campo JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// PublishOutcomeRequest é o corpo de POST /api/events/outcomes
type PublishOutcomeRequest struct {
	EventID       string `json:"eventId" validate:"notblank"`
	EventName     string `json:"eventName" validate:"notblank"`
	EventWinnerID string `json:"eventWinnerId" validate:"notblank"`
}

var fieldMessages = map[string]string{
	"eventId":       "Event ID is required",
	"eventName":     "Event name is required",
	"eventWinnerId": "Event winner ID is required",
}

// Validate devolve nil ou um mapa campo -> mensagem
func (r PublishOutcomeRequest) Validate() map[string]string {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}

func (r PublishOutcomeRequest) Outcome() events.EventOutcome {
	return events.EventOutcome{
		EventID:       r.EventID,
		EventName:     r.EventName,
		EventWinnerID: r.EventWinnerID,
	}
}
