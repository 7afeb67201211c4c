package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_OK(t *testing.T) {
	r := PublishOutcomeRequest{EventID: "E1", EventName: "Final", EventWinnerID: "A"}
	assert.Nil(t, r.Validate())
	assert.Equal(t, "A", r.Outcome().EventWinnerID)
}

func TestValidate_MissingAndBlankFields(t *testing.T) {
	errs := PublishOutcomeRequest{EventID: "", EventName: "   ", EventWinnerID: "\t"}.Validate()

	assert.Equal(t, map[string]string{
		"eventId":       "Event ID is required",
		"eventName":     "Event name is required",
		"eventWinnerId": "Event winner ID is required",
	}, errs)
}

func TestValidate_SingleField(t *testing.T) {
	errs := PublishOutcomeRequest{EventID: "E1", EventName: "Final"}.Validate()
	assert.Equal(t, map[string]string{"eventWinnerId": "Event winner ID is required"}, errs)
}
