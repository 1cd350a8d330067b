package api

import (
	"context"

	"github.com/shopspring/decimal"

	"lifeboard/domain"
)

// Store abstracts the record store for handlers.
type Store interface {
	Snapshot(ctx context.Context) (domain.Board, error)

	CreateTask(ctx context.Context, t domain.Task) (domain.Task, error)
	UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error

	CreateColumn(ctx context.Context, title string, color domain.Color) (domain.Column, error)
	DeleteColumn(ctx context.Context, id string) error

	CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error)
	UpdateAsset(ctx context.Context, id string, p domain.AssetPatch) (domain.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// Market provides options chains and spot quotes.
type Market interface {
	Chain(ctx context.Context, symbol, expiration string) (domain.OptionsChain, error)
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Authenticator issues session tokens and verifies them from request headers.
type Authenticator interface {
	Login(username, password string) (string, error)
	UserFromAuthHeader(h string) (string, error)
}
