package models

import "errors"

type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionNone  Action = "none"
	ActionError Action = "error"
)

// Decision - результат одного цикла стратегии. Не сохраняется.
type Decision struct {
	Action Action
	Reason string
	Err    error
}

func Buy(reason string) Decision  { return Decision{Action: ActionBuy, Reason: reason} }
func Sell(reason string) Decision { return Decision{Action: ActionSell, Reason: reason} }

func NoAction(reason string) Decision {
	return Decision{Action: ActionNone, Reason: reason}
}

// Insufficient - истории пока мало, ждём следующий тик.
func Insufficient(err error) Decision {
	return Decision{Action: ActionNone, Reason: err.Error(), Err: err}
}

func Fail(err error) Decision {
	return Decision{Action: ActionError, Reason: err.Error(), Err: err}
}

func (d Decision) Actionable() bool {
	return d.Action == ActionBuy || d.Action == ActionSell
}

func (d Decision) InsufficientData() bool {
	return errors.Is(d.Err, ErrInsufficientData)
}
