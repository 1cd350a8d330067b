package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"lifeboard/domain"
)

// BlobFileName is the fixed key the local store persists the board under.
const BlobFileName = "lifeboard.json"

// Local is the fallback store used when no remote backend is configured: a
// single JSON blob holding all four collections, seeded with default
// content on first access.
type Local struct {
	path string
	mu   sync.Mutex
}

// NewLocal creates a local store persisting under dir.
func NewLocal(dir string) *Local {
	return &Local{path: filepath.Join(dir, BlobFileName)}
}

// blob is the serialized shape of the local store. Settings is a pointer so
// an absent field can be told apart from a zero value when migrating older
// blobs.
type blob struct {
	Tasks    []domain.Task    `json:"tasks"`
	Columns  []domain.Column  `json:"columns"`
	Assets   []domain.Asset   `json:"assets"`
	Settings *domain.Settings `json:"settings"`
}

// load reads the blob, seeding defaults when the file does not exist yet.
// Older blobs written before columns were configurable lack the columns
// field; it is backfilled with the default set.
func (l *Local) load() (blob, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		board := DefaultBoard()
		b := blob{Tasks: board.Tasks, Columns: board.Columns, Assets: board.Assets, Settings: &board.Settings}
		if err := l.save(b); err != nil {
			return blob{}, err
		}
		return b, nil
	}
	if err != nil {
		return blob{}, fmt.Errorf("read %s: %w", l.path, err)
	}
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return blob{}, fmt.Errorf("decode %s: %w", l.path, err)
	}
	if len(b.Columns) == 0 {
		b.Columns = DefaultColumns()
	}
	if b.Settings == nil {
		s := DefaultSettings()
		b.Settings = &s
	}
	return b, nil
}

func (l *Local) save(b blob) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o644)
}

// Snapshot returns the full board.
func (l *Local) Snapshot(ctx context.Context) (domain.Board, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load()
	if err != nil {
		return domain.Board{}, err
	}
	tasks := append([]domain.Task(nil), b.Tasks...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].CreatedAt < tasks[j].CreatedAt })
	return domain.Board{
		Tasks:    tasks,
		Columns:  append([]domain.Column(nil), b.Columns...),
		Assets:   append([]domain.Asset(nil), b.Assets...),
		Settings: *b.Settings,
	}, nil
}

func (l *Local) mutate(fn func(*blob) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, err := l.load()
	if err != nil {
		return err
	}
	if err := fn(&b); err != nil {
		return err
	}
	return l.save(b)
}

func (l *Local) CreateTask(ctx context.Context, t domain.Task) error {
	return l.mutate(func(b *blob) error {
		b.Tasks = append(b.Tasks, t)
		return nil
	})
}

func (l *Local) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	var updated domain.Task
	err := l.mutate(func(b *blob) error {
		for i := range b.Tasks {
			if b.Tasks[i].ID == id {
				p.Apply(&b.Tasks[i])
				updated = b.Tasks[i]
				return nil
			}
		}
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	})
	return updated, err
}

func (l *Local) DeleteTask(ctx context.Context, id string) error {
	return l.mutate(func(b *blob) error {
		for i := range b.Tasks {
			if b.Tasks[i].ID == id {
				b.Tasks = append(b.Tasks[:i], b.Tasks[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	})
}

func (l *Local) CreateColumn(ctx context.Context, c domain.Column) error {
	return l.mutate(func(b *blob) error {
		b.Columns = append(b.Columns, c)
		return nil
	})
}

// DeleteColumn deletes unconditionally; the in-use guard lives in the
// Facade.
func (l *Local) DeleteColumn(ctx context.Context, id string) error {
	return l.mutate(func(b *blob) error {
		for i := range b.Columns {
			if b.Columns[i].ID == id {
				b.Columns = append(b.Columns[:i], b.Columns[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("column %s: %w", id, domain.ErrNotFound)
	})
}

func (l *Local) CreateAsset(ctx context.Context, a domain.Asset) error {
	return l.mutate(func(b *blob) error {
		b.Assets = append(b.Assets, a)
		return nil
	})
}

func (l *Local) UpdateAsset(ctx context.Context, id string, p domain.AssetPatch) (domain.Asset, error) {
	var updated domain.Asset
	err := l.mutate(func(b *blob) error {
		for i := range b.Assets {
			if b.Assets[i].ID == id {
				p.Apply(&b.Assets[i])
				updated = b.Assets[i]
				return nil
			}
		}
		return fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
	})
	return updated, err
}

func (l *Local) DeleteAsset(ctx context.Context, id string) error {
	return l.mutate(func(b *blob) error {
		for i := range b.Assets {
			if b.Assets[i].ID == id {
				b.Assets = append(b.Assets[:i], b.Assets[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
	})
}

var _ Backend = (*Local)(nil)
