package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"lifeboard/date"
	"lifeboard/domain"
)

// partitionKey is the single partition all records live in. The board has
// exactly one user.
const partitionKey = "board"

// settingsRowKey identifies the singleton settings record.
const settingsRowKey = "settings"

// TableNames holds the four backing table names.
type TableNames struct {
	Tasks    string
	Columns  string
	Assets   string
	Settings string
}

// Remote stores the board in Azure Table Storage, one table per
// collection. Application camelCase fields map to the backend's snake_case
// properties, and numeric fields travel as text.
type Remote struct {
	tasks    *aztables.Client
	columns  *aztables.Client
	assets   *aztables.Client
	settings *aztables.Client
	logger   *log.Logger
}

// NewRemote creates a Remote from the given connection string.
func NewRemote(connStr string, tables TableNames, logger *log.Logger) (*Remote, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Remote{
		tasks:    svc.NewClient(tables.Tasks),
		columns:  svc.NewClient(tables.Columns),
		assets:   svc.NewClient(tables.Assets),
		settings: svc.NewClient(tables.Settings),
		logger:   logger,
	}, nil
}

type taskEntity struct {
	aztables.Entity
	Title     string `json:"title"`
	Category  string `json:"category"`
	Status    string `json:"status"`
	DueDate   string `json:"due_date"`
	CreatedAt string `json:"created_at"`
}

type columnEntity struct {
	aztables.Entity
	Title string `json:"title"`
	Color string `json:"color"`
}

type assetEntity struct {
	aztables.Entity
	Symbol       string `json:"symbol"`
	Type         string `json:"type"`
	Quantity     string `json:"quantity"`
	BuyPrice     string `json:"buy_price"`
	CurrentPrice string `json:"current_price"`
	CreatedAt    string `json:"created_at"`
}

type settingsEntity struct {
	aztables.Entity
	InvestmentGoal string `json:"investment_goal"`
	TargetYear     string `json:"target_year"`
}

func newEntity(rowKey string) aztables.Entity {
	return aztables.Entity{PartitionKey: partitionKey, RowKey: rowKey}
}

// wrapErr maps service errors to the domain taxonomy: 404 becomes
// ErrNotFound, other service responses ErrBackendRequestFailed, and
// transport-level failures ErrBackendUnavailable.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w: status %d", op, domain.ErrBackendRequestFailed, respErr.StatusCode)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrBackendUnavailable, err)
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseMillis(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (t taskEntity) task() domain.Task {
	due, _ := date.Parse(t.DueDate)
	return domain.Task{
		ID:        t.RowKey,
		Title:     t.Title,
		Category:  domain.Category(t.Category),
		Status:    t.Status,
		DueDate:   due,
		CreatedAt: parseMillis(t.CreatedAt),
	}
}

func taskEntityFrom(t domain.Task) taskEntity {
	return taskEntity{
		Entity:    newEntity(t.ID),
		Title:     t.Title,
		Category:  string(t.Category),
		Status:    t.Status,
		DueDate:   t.DueDate.String(),
		CreatedAt: strconv.FormatInt(t.CreatedAt, 10),
	}
}

func (a assetEntity) asset() domain.Asset {
	return domain.Asset{
		ID:           a.RowKey,
		Symbol:       a.Symbol,
		Type:         domain.AssetType(a.Type),
		Quantity:     parseDecimal(a.Quantity),
		BuyPrice:     parseDecimal(a.BuyPrice),
		CurrentPrice: parseDecimal(a.CurrentPrice),
		CreatedAt:    parseMillis(a.CreatedAt),
	}
}

func assetEntityFrom(a domain.Asset) assetEntity {
	return assetEntity{
		Entity:       newEntity(a.ID),
		Symbol:       a.Symbol,
		Type:         string(a.Type),
		Quantity:     a.Quantity.String(),
		BuyPrice:     a.BuyPrice.String(),
		CurrentPrice: a.CurrentPrice.String(),
		CreatedAt:    strconv.FormatInt(a.CreatedAt, 10),
	}
}

func listEntities(ctx context.Context, client *aztables.Client, each func(raw []byte) error) error {
	filter := "PartitionKey eq '" + partitionKey + "'"
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, raw := range resp.Entities {
			if err := each(raw); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Remote) fetchTasks(ctx context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := listEntities(ctx, r.tasks, func(raw []byte) error {
		var ent taskEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		tasks = append(tasks, ent.task())
		return nil
	})
	if err != nil {
		return nil, wrapErr("fetch tasks", err)
	}
	return tasks, nil
}

func (r *Remote) fetchColumns(ctx context.Context) ([]domain.Column, error) {
	columns := []domain.Column{}
	err := listEntities(ctx, r.columns, func(raw []byte) error {
		var ent columnEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		columns = append(columns, domain.Column{ID: ent.RowKey, Title: ent.Title, Color: domain.Color(ent.Color)})
		return nil
	})
	if err != nil {
		return nil, wrapErr("fetch columns", err)
	}
	return columns, nil
}

func (r *Remote) fetchAssets(ctx context.Context) ([]domain.Asset, error) {
	assets := []domain.Asset{}
	err := listEntities(ctx, r.assets, func(raw []byte) error {
		var ent assetEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		assets = append(assets, ent.asset())
		return nil
	})
	if err != nil {
		return nil, wrapErr("fetch assets", err)
	}
	return assets, nil
}

func (r *Remote) fetchSettings(ctx context.Context) (domain.Settings, error) {
	resp, err := r.settings.GetEntity(ctx, partitionKey, settingsRowKey, nil)
	if err != nil {
		return domain.Settings{}, wrapErr("fetch settings", err)
	}
	var ent settingsEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Settings{}, wrapErr("fetch settings", err)
	}
	year, _ := strconv.Atoi(ent.TargetYear)
	return domain.Settings{InvestmentGoal: parseDecimal(ent.InvestmentGoal), TargetYear: year}, nil
}

// Snapshot reads all four collections. There is no transactionality: each
// collection is fetched independently and a failed one is substituted with
// its default. Only when every read fails does Snapshot return an error,
// which lets the Facade switch to the local fallback.
func (r *Remote) Snapshot(ctx context.Context) (domain.Board, error) {
	board := domain.Board{
		Tasks:    []domain.Task{},
		Columns:  DefaultColumns(),
		Assets:   []domain.Asset{},
		Settings: DefaultSettings(),
	}
	var firstErr error
	failures := 0
	note := func(err error) {
		failures++
		if firstErr == nil {
			firstErr = err
		}
		r.logger.WithError(err).Warn("partial snapshot read failed")
	}

	if tasks, err := r.fetchTasks(ctx); err != nil {
		note(err)
	} else {
		board.Tasks = tasks
	}
	if columns, err := r.fetchColumns(ctx); err != nil {
		note(err)
	} else if len(columns) > 0 {
		board.Columns = columns
	}
	if assets, err := r.fetchAssets(ctx); err != nil {
		note(err)
	} else {
		board.Assets = assets
	}
	if settings, err := r.fetchSettings(ctx); err != nil && !errors.Is(err, domain.ErrNotFound) {
		note(err)
	} else if err == nil {
		board.Settings = settings
	}

	if failures == 4 {
		return domain.Board{}, firstErr
	}
	return board, nil
}

func (r *Remote) add(ctx context.Context, client *aztables.Client, op string, ent any) error {
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = client.AddEntity(ctx, data, nil)
	return wrapErr(op, err)
}

func (r *Remote) upsert(ctx context.Context, client *aztables.Client, op string, ent any) error {
	data, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = client.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return wrapErr(op, err)
}

func (r *Remote) CreateTask(ctx context.Context, t domain.Task) error {
	return r.add(ctx, r.tasks, "create task", taskEntityFrom(t))
}

func (r *Remote) UpdateTask(ctx context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	resp, err := r.tasks.GetEntity(ctx, partitionKey, id, nil)
	if err != nil {
		return domain.Task{}, wrapErr("update task", err)
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, wrapErr("update task", err)
	}
	task := ent.task()
	p.Apply(&task)
	if err := r.upsert(ctx, r.tasks, "update task", taskEntityFrom(task)); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (r *Remote) DeleteTask(ctx context.Context, id string) error {
	_, err := r.tasks.DeleteEntity(ctx, partitionKey, id, nil)
	return wrapErr("delete task", err)
}

func (r *Remote) CreateColumn(ctx context.Context, c domain.Column) error {
	ent := columnEntity{Entity: newEntity(c.ID), Title: c.Title, Color: string(c.Color)}
	return r.add(ctx, r.columns, "create column", ent)
}

// DeleteColumn deletes unconditionally; the in-use guard lives in the
// Facade.
func (r *Remote) DeleteColumn(ctx context.Context, id string) error {
	_, err := r.columns.DeleteEntity(ctx, partitionKey, id, nil)
	return wrapErr("delete column", err)
}

func (r *Remote) CreateAsset(ctx context.Context, a domain.Asset) error {
	return r.add(ctx, r.assets, "create asset", assetEntityFrom(a))
}

func (r *Remote) UpdateAsset(ctx context.Context, id string, p domain.AssetPatch) (domain.Asset, error) {
	resp, err := r.assets.GetEntity(ctx, partitionKey, id, nil)
	if err != nil {
		return domain.Asset{}, wrapErr("update asset", err)
	}
	var ent assetEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Asset{}, wrapErr("update asset", err)
	}
	asset := ent.asset()
	p.Apply(&asset)
	if err := r.upsert(ctx, r.assets, "update asset", assetEntityFrom(asset)); err != nil {
		return domain.Asset{}, err
	}
	return asset, nil
}

func (r *Remote) DeleteAsset(ctx context.Context, id string) error {
	_, err := r.assets.DeleteEntity(ctx, partitionKey, id, nil)
	return wrapErr("delete asset", err)
}

var _ Backend = (*Remote)(nil)
