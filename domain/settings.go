package domain

import "github.com/shopspring/decimal"

// Settings is the singleton dashboard configuration. It is seeded once and
// read-only through the API.
type Settings struct {
	InvestmentGoal decimal.Decimal `json:"investmentGoal"`
	TargetYear     int             `json:"targetYear"`
}
