package consumer

// Result é a decisão de confirmação para uma mensagem de resultado
type Result int

const (
	// Ack: matching ok e todos os envios ok (ou nenhuma aposta)
	Ack Result = iota
	// AckWithPartialFailure: matching ok, ao menos um envio falhou (registrado, não reenviado)
	AckWithPartialFailure
	// NackRedeliver: matching falhou; a mensagem deve ser entregue de novo
	NackRedeliver
)

func (r Result) String() string {
	switch r {
	case Ack:
		return "ack"
	case AckWithPartialFailure:
		return "ack_partial_failure"
	case NackRedeliver:
		return "nack_redeliver"
	}
	return "unknown"
}

// Acked indica se o offset deve ser confirmado
func (r Result) Acked() bool { return r != NackRedeliver }

// Decide concentra a política de ack: só falha de matching impede a confirmação
func Decide(matchErr error, failedSends int) Result {
	if matchErr != nil {
		return NackRedeliver
	}
	if failedSends > 0 {
		return AckWithPartialFailure
	}
	return Ack
}
