package events

import "github.com/shopspring/decimal"

const (
	TagWon  = "WON"
	TagLost = "LOST"
)

// BetSettlement é a decisão de liquidação de uma aposta, gerada pelo matcher
// e consumida uma vez (ou mais, em caso de reentrega) pelo settler.
type BetSettlement struct {
	BetID             int64           `json:"betId"`
	UserID            string          `json:"userId"`
	EventID           string          `json:"eventId"`
	EventWinnerID     string          `json:"eventWinnerId"`     // vencedor real
	PredictedWinnerID string          `json:"predictedWinnerId"` // palpite original da aposta
	BetAmount         decimal.Decimal `json:"betAmount"`
	Won               bool            `json:"won"`
	EventMarketID     string          `json:"eventMarketId"`
}

// Tag classifica a mensagem: "WON" | "LOST"
func (s BetSettlement) Tag() string {
	if s.Won {
		return TagWon
	}
	return TagLost
}
