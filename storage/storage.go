// Package storage persists the board's four record collections. A Backend
// is either the remote table service or the local JSON-blob fallback; the
// Facade picks one at startup and layers the write-side guards on top.
package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"lifeboard/domain"
)

func trim(s string) string { return strings.TrimSpace(s) }

func newID() string { return uuid.NewString() }

// Backend is the raw CRUD surface over the four collections. Implementations
// perform unconditional writes; referential guards live in the Facade.
type Backend interface {
	Snapshot(ctx context.Context) (domain.Board, error)

	CreateTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error

	CreateColumn(ctx context.Context, c domain.Column) error
	DeleteColumn(ctx context.Context, id string) error

	CreateAsset(ctx context.Context, a domain.Asset) error
	UpdateAsset(ctx context.Context, id string, p domain.AssetPatch) (domain.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

// Facade is the store the rest of the application talks to. It validates
// input, enforces the column guards, and falls back to the local snapshot
// when the remote aggregate read fails. Writes never fall back: their
// errors propagate so the caller can surface them.
type Facade struct {
	primary  Backend
	fallback Backend // nil when the primary already is the local store
	logger   *log.Logger
}

// New creates a Facade over the chosen backend. fallback may be nil.
func New(primary Backend, fallback Backend, logger *log.Logger) *Facade {
	if primary == nil {
		panic("storage.New: primary backend is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Facade{primary: primary, fallback: fallback, logger: logger}
}

// Snapshot returns the aggregate board. When the primary read fails and a
// fallback store is configured, the fallback snapshot is served instead and
// the failure is only logged.
func (f *Facade) Snapshot(ctx context.Context) (domain.Board, error) {
	board, err := f.primary.Snapshot(ctx)
	if err == nil {
		return board, nil
	}
	if f.fallback == nil {
		return domain.Board{}, err
	}
	f.logger.WithError(err).Warn("remote snapshot failed, serving local fallback")
	return f.fallback.Snapshot(ctx)
}

// CreateTask validates and stores a new task, assigning its ID and creation
// timestamp.
func (f *Facade) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	if trimmed := trim(t.Title); trimmed == "" {
		return domain.Task{}, domain.Invalid("title", "must not be blank")
	}
	if t.Category == "" {
		t.Category = domain.CategoryPersonal
	}
	if !t.Category.Valid() {
		return domain.Task{}, domain.Invalid("category", "unknown category "+string(t.Category))
	}
	if t.Status == "" {
		t.Status = DefaultColumns()[0].ID
	}
	if t.ID == "" {
		t.ID = newID()
	}
	t.CreatedAt = domain.NowUnixMilli()
	if err := f.primary.CreateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// UpdateTask applies a partial update and returns the stored result.
func (f *Facade) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	if p.Title != nil && trim(*p.Title) == "" {
		return domain.Task{}, domain.Invalid("title", "must not be blank")
	}
	if p.Category != nil && !p.Category.Valid() {
		return domain.Task{}, domain.Invalid("category", "unknown category "+string(*p.Category))
	}
	return f.primary.UpdateTask(ctx, id, p)
}

// DeleteTask removes a task.
func (f *Facade) DeleteTask(ctx context.Context, id string) error {
	return f.primary.DeleteTask(ctx, id)
}

// CreateColumn derives the column's ID from its title and rejects the
// creation when the derived ID collides with an existing column.
func (f *Facade) CreateColumn(ctx context.Context, title string, color domain.Color) (domain.Column, error) {
	if trim(title) == "" {
		return domain.Column{}, domain.Invalid("title", "must not be blank")
	}
	if color == "" {
		color = domain.ColorGray
	}
	if !color.Valid() {
		return domain.Column{}, domain.Invalid("color", "unknown color "+string(color))
	}
	col := domain.Column{ID: domain.ColumnID(title), Title: trim(title), Color: color}

	board, err := f.primary.Snapshot(ctx)
	if err != nil {
		return domain.Column{}, err
	}
	for _, existing := range board.Columns {
		if existing.ID == col.ID {
			return domain.Column{}, domain.Invalid("title", "a column with id "+col.ID+" already exists")
		}
	}
	if err := f.primary.CreateColumn(ctx, col); err != nil {
		return domain.Column{}, err
	}
	return col, nil
}

// DeleteColumn refuses to delete a column while any task still references
// it, with zero side effects; the raw backends delete unconditionally.
func (f *Facade) DeleteColumn(ctx context.Context, id string) error {
	board, err := f.primary.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, t := range board.Tasks {
		if t.Status == id {
			return domain.ErrColumnInUse
		}
	}
	return f.primary.DeleteColumn(ctx, id)
}

// CreateAsset validates and stores a new holding, normalizing the symbol
// and assigning its ID and creation timestamp.
func (f *Facade) CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error) {
	a.Symbol = domain.NormalizeSymbol(a.Symbol)
	if a.Symbol == "" {
		return domain.Asset{}, domain.Invalid("symbol", "must not be blank")
	}
	if a.Type == "" {
		a.Type = domain.AssetStock
	}
	if !a.Type.Valid() {
		return domain.Asset{}, domain.Invalid("type", "unknown asset type "+string(a.Type))
	}
	if a.ID == "" {
		a.ID = newID()
	}
	a.CreatedAt = domain.NowUnixMilli()
	if err := f.primary.CreateAsset(ctx, a); err != nil {
		return domain.Asset{}, err
	}
	return a, nil
}

// UpdateAsset applies a partial update and returns the stored result.
func (f *Facade) UpdateAsset(ctx context.Context, id string, p domain.AssetPatch) (domain.Asset, error) {
	if p.Symbol != nil && domain.NormalizeSymbol(*p.Symbol) == "" {
		return domain.Asset{}, domain.Invalid("symbol", "must not be blank")
	}
	if p.Type != nil && !p.Type.Valid() {
		return domain.Asset{}, domain.Invalid("type", "unknown asset type "+string(*p.Type))
	}
	return f.primary.UpdateAsset(ctx, id, p)
}

// DeleteAsset removes a holding.
func (f *Facade) DeleteAsset(ctx context.Context, id string) error {
	return f.primary.DeleteAsset(ctx, id)
}
