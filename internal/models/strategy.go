package models

type StrategyType string

const (
	StrategyMoving  StrategyType = "moving"
	StrategyPercent StrategyType = "percent"
)

// Side сторона рыночного ордера на бирже.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
