package storage

import (
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/shopspring/decimal"

	"lifeboard/date"
	"lifeboard/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTaskEntityRoundTrip(t *testing.T) {
	task := domain.Task{
		ID:        "t1",
		Title:     "review budget",
		Category:  domain.CategoryWork,
		Status:    "IN_PROGRESS",
		DueDate:   date.MustParse("2024-06-10"),
		CreatedAt: 1718000000000,
	}
	ent := taskEntityFrom(task)
	if ent.PartitionKey != partitionKey || ent.RowKey != "t1" {
		t.Errorf("keys = %s/%s", ent.PartitionKey, ent.RowKey)
	}
	if ent.DueDate != "2024-06-10" {
		t.Errorf("due_date = %q", ent.DueDate)
	}
	if ent.CreatedAt != "1718000000000" {
		t.Errorf("created_at should travel as text, got %q", ent.CreatedAt)
	}
	if got := ent.task(); got != task {
		t.Errorf("round trip = %+v, want %+v", got, task)
	}
}

func TestAssetEntityRoundTrip(t *testing.T) {
	asset := domain.Asset{
		ID:           "a1",
		Symbol:       "AAPL",
		Type:         domain.AssetStock,
		Quantity:     dec("2.5"),
		BuyPrice:     dec("180.25"),
		CurrentPrice: dec("195.1"),
		CreatedAt:    1718000000001,
	}
	ent := assetEntityFrom(asset)
	if ent.BuyPrice != "180.25" || ent.CurrentPrice != "195.1" {
		t.Errorf("prices should travel as text: buy=%q current=%q", ent.BuyPrice, ent.CurrentPrice)
	}
	got := ent.asset()
	if got.ID != asset.ID || got.Symbol != asset.Symbol || got.Type != asset.Type {
		t.Errorf("round trip = %+v", got)
	}
	if !got.Quantity.Equal(asset.Quantity) || !got.BuyPrice.Equal(asset.BuyPrice) || !got.CurrentPrice.Equal(asset.CurrentPrice) {
		t.Errorf("numeric round trip = %+v", got)
	}
}

func TestParseDecimalToleratesGarbage(t *testing.T) {
	if !parseDecimal("not-a-number").IsZero() {
		t.Error("garbage should parse to zero")
	}
	if !parseDecimal("12.5").Equal(dec("12.5")) {
		t.Error("valid decimal should parse")
	}
}

func TestWrapErrMapsTaxonomy(t *testing.T) {
	if wrapErr("op", nil) != nil {
		t.Error("nil stays nil")
	}

	notFound := &azcore.ResponseError{StatusCode: 404}
	if err := wrapErr("op", notFound); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("404 = %v, want NotFound", err)
	}

	rejected := &azcore.ResponseError{StatusCode: 400}
	if err := wrapErr("op", rejected); !errors.Is(err, domain.ErrBackendRequestFailed) {
		t.Errorf("400 = %v, want BackendRequestFailed", err)
	}

	if err := wrapErr("op", errors.New("dial tcp: connection refused")); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("transport error = %v, want BackendUnavailable", err)
	}
}
