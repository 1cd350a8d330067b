package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeSymbol trims and uppercases a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// AssetType classifies a portfolio holding.
type AssetType string

const (
	AssetStock  AssetType = "Stock"
	AssetCrypto AssetType = "Crypto"
	AssetETF    AssetType = "ETF"
)

// AssetTypes lists the valid asset types.
var AssetTypes = []AssetType{AssetStock, AssetCrypto, AssetETF}

// Valid reports whether t is one of the known asset types.
func (t AssetType) Valid() bool {
	for _, k := range AssetTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Asset is a portfolio holding. Quantity and prices are unconstrained in
// sign; the market price is refreshed best-effort from the quote feed.
type Asset struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Type         AssetType       `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	BuyPrice     decimal.Decimal `json:"buyPrice"`
	CurrentPrice decimal.Decimal `json:"currentPrice"`
	CreatedAt    int64           `json:"createdAt"` // epoch milliseconds
}

// MarketValue returns quantity times the current market price.
func (a Asset) MarketValue() decimal.Decimal {
	return a.Quantity.Mul(a.CurrentPrice)
}

// CostBasis returns quantity times the average buy price.
func (a Asset) CostBasis() decimal.Decimal {
	return a.Quantity.Mul(a.BuyPrice)
}

// Unrealized returns the unrealized gain or loss.
func (a Asset) Unrealized() decimal.Decimal {
	return a.MarketValue().Sub(a.CostBasis())
}

// AssetPatch carries a partial asset update; nil fields are left untouched.
type AssetPatch struct {
	Symbol       *string          `json:"symbol,omitempty"`
	Type         *AssetType       `json:"type,omitempty"`
	Quantity     *decimal.Decimal `json:"quantity,omitempty"`
	BuyPrice     *decimal.Decimal `json:"buyPrice,omitempty"`
	CurrentPrice *decimal.Decimal `json:"currentPrice,omitempty"`
}

// Apply copies the non-nil patch fields onto a.
func (p AssetPatch) Apply(a *Asset) {
	if p.Symbol != nil {
		a.Symbol = NormalizeSymbol(*p.Symbol)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Quantity != nil {
		a.Quantity = *p.Quantity
	}
	if p.BuyPrice != nil {
		a.BuyPrice = *p.BuyPrice
	}
	if p.CurrentPrice != nil {
		a.CurrentPrice = *p.CurrentPrice
	}
}

// PortfolioSummary is the rollup shown on the dashboard and by the bot's
// /pnl command.
type PortfolioSummary struct {
	Value        decimal.Decimal `json:"value"`
	Cost         decimal.Decimal `json:"cost"`
	Gain         decimal.Decimal `json:"gain"`
	GainPercent  decimal.Decimal `json:"gainPercent"`
	GoalProgress decimal.Decimal `json:"goalProgress"` // percent of the investment goal
}

// Summarize computes the portfolio rollup for the given holdings against
// the configured investment goal.
func Summarize(assets []Asset, settings Settings) PortfolioSummary {
	var s PortfolioSummary
	for _, a := range assets {
		s.Value = s.Value.Add(a.MarketValue())
		s.Cost = s.Cost.Add(a.CostBasis())
	}
	s.Gain = s.Value.Sub(s.Cost)
	if !s.Cost.IsZero() {
		s.GainPercent = s.Gain.Div(s.Cost).Mul(decimal.NewFromInt(100)).Round(2)
	}
	if settings.InvestmentGoal.IsPositive() {
		s.GoalProgress = s.Value.Div(settings.InvestmentGoal).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return s
}
