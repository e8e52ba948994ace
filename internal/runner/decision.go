package runner

import (
	"fmt"

	"github.com/shopspring/decimal"

	"flow_bot/internal/models"
)

type Outcome string

const (
	OutcomeSubmit  Outcome = "submit"
	OutcomeSkip    Outcome = "skip"
	OutcomeWarmup  Outcome = "warmup"
	OutcomeAbort   Outcome = "abort"
	OutcomeTicker  Outcome = "ticker"
	OutcomeIgnored Outcome = "ignored"
)

// Decision: итог одного сообщения. Не хранится.
type Decision struct {
	Side     models.Side
	Size     decimal.Decimal
	Outcome  Outcome
	Reason   string
	Accepted bool
}

func (d Decision) String() string {
	switch d.Outcome {
	case OutcomeSubmit:
		res := "Rejected"
		if d.Accepted {
			res = "Accepted"
		}
		return fmt.Sprintf("%s %s => %s.", d.Side, d.Size, res)
	case OutcomeSkip:
		return fmt.Sprintf("Skip by %s. (side: %s)", d.Reason, d.Side)
	case OutcomeAbort:
		return "Abort: " + d.Reason
	}
	return string(d.Outcome)
}
