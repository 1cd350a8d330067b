package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAssetMath(t *testing.T) {
	a := Asset{Quantity: dec("2"), BuyPrice: dec("100"), CurrentPrice: dec("150.5")}
	if got := a.MarketValue(); !got.Equal(dec("301")) {
		t.Errorf("MarketValue = %s, want 301", got)
	}
	if got := a.CostBasis(); !got.Equal(dec("200")) {
		t.Errorf("CostBasis = %s, want 200", got)
	}
	if got := a.Unrealized(); !got.Equal(dec("101")) {
		t.Errorf("Unrealized = %s, want 101", got)
	}
}

func TestSummarize(t *testing.T) {
	assets := []Asset{
		{Quantity: dec("1"), BuyPrice: dec("100"), CurrentPrice: dec("120")},
		{Quantity: dec("10"), BuyPrice: dec("5"), CurrentPrice: dec("4")},
	}
	s := Summarize(assets, Settings{InvestmentGoal: dec("1000")})
	if !s.Value.Equal(dec("160")) {
		t.Errorf("Value = %s, want 160", s.Value)
	}
	if !s.Cost.Equal(dec("150")) {
		t.Errorf("Cost = %s, want 150", s.Cost)
	}
	if !s.Gain.Equal(dec("10")) {
		t.Errorf("Gain = %s, want 10", s.Gain)
	}
	if !s.GainPercent.Equal(dec("6.67")) {
		t.Errorf("GainPercent = %s, want 6.67", s.GainPercent)
	}
	if !s.GoalProgress.Equal(dec("16")) {
		t.Errorf("GoalProgress = %s, want 16", s.GoalProgress)
	}
}

func TestSummarizeEmptyPortfolio(t *testing.T) {
	s := Summarize(nil, Settings{})
	if !s.Value.IsZero() || !s.GainPercent.IsZero() || !s.GoalProgress.IsZero() {
		t.Errorf("empty portfolio summary should be all zero, got %+v", s)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  aapl "); got != "AAPL" {
		t.Errorf("NormalizeSymbol = %q", got)
	}
}

func TestNowUnixMilliMonotonic(t *testing.T) {
	prev := NowUnixMilli()
	for i := 0; i < 1000; i++ {
		next := NowUnixMilli()
		if next <= prev {
			t.Fatalf("timestamps not strictly increasing: %d then %d", prev, next)
		}
		prev = next
	}
}
