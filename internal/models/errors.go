package models

import (
	"errors"
	"fmt"
)

var ErrInsufficientData = errors.New("insufficient data")

// ConsistencyError - нарушен инвариант позиции (например продажа без покупки).
type ConsistencyError struct {
	Ticker string
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: consistency: %s", e.Ticker, e.Reason)
}

// GatewayError - отказ биржи на любом из запросов цикла.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
