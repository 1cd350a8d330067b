package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"lifeboard/domain"
)

type mockStore struct {
	mu sync.Mutex

	board       domain.Board
	snapshotErr error
	writeErr    error

	createdTasks   []domain.Task
	createdColumns []domain.Column
	createdAssets  []domain.Asset
	assetPatches   map[string]domain.AssetPatch
	deletedIDs     []string
}

func (m *mockStore) Snapshot(context.Context) (domain.Board, error) {
	if m.snapshotErr != nil {
		return domain.Board{}, m.snapshotErr
	}
	return m.board, nil
}

func (m *mockStore) CreateTask(_ context.Context, t domain.Task) (domain.Task, error) {
	if m.writeErr != nil {
		return domain.Task{}, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = "task-1"
	t.CreatedAt = 1
	m.createdTasks = append(m.createdTasks, t)
	return t, nil
}

func (m *mockStore) UpdateTask(_ context.Context, id string, p domain.TaskPatch) (domain.Task, error) {
	if m.writeErr != nil {
		return domain.Task{}, m.writeErr
	}
	for _, t := range m.board.Tasks {
		if t.ID == id {
			p.Apply(&t)
			return t, nil
		}
	}
	return domain.Task{}, domain.ErrNotFound
}

func (m *mockStore) DeleteTask(_ context.Context, id string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockStore) CreateColumn(_ context.Context, title string, color domain.Color) (domain.Column, error) {
	if m.writeErr != nil {
		return domain.Column{}, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	col := domain.Column{ID: domain.ColumnID(title), Title: title, Color: color}
	m.createdColumns = append(m.createdColumns, col)
	return col, nil
}

func (m *mockStore) DeleteColumn(_ context.Context, id string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockStore) CreateAsset(_ context.Context, a domain.Asset) (domain.Asset, error) {
	if m.writeErr != nil {
		return domain.Asset{}, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = "asset-1"
	a.CreatedAt = 1
	m.createdAssets = append(m.createdAssets, a)
	return a, nil
}

func (m *mockStore) UpdateAsset(_ context.Context, id string, p domain.AssetPatch) (domain.Asset, error) {
	if m.writeErr != nil {
		return domain.Asset{}, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.assetPatches == nil {
		m.assetPatches = make(map[string]domain.AssetPatch)
	}
	m.assetPatches[id] = p
	for _, a := range m.board.Assets {
		if a.ID == id {
			p.Apply(&a)
			return a, nil
		}
	}
	return domain.Asset{}, domain.ErrNotFound
}

func (m *mockStore) DeleteAsset(_ context.Context, id string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type mockMarket struct {
	mu sync.Mutex

	chain    domain.OptionsChain
	chainErr error
	quotes   map[string]decimal.Decimal
	quoteErr map[string]error

	quoteCalls []string
}

func (m *mockMarket) Chain(context.Context, string, string) (domain.OptionsChain, error) {
	if m.chainErr != nil {
		return domain.OptionsChain{}, m.chainErr
	}
	return m.chain, nil
}

func (m *mockMarket) Quote(_ context.Context, symbol string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls = append(m.quoteCalls, symbol)
	if err := m.quoteErr[symbol]; err != nil {
		return decimal.Zero, err
	}
	return m.quotes[symbol], nil
}

type mockAuth struct{}

func (mockAuth) Login(string, string) (string, error)      { return "token", nil }
func (mockAuth) UserFromAuthHeader(string) (string, error) { return "admin", nil }

type denyAuth struct{}

func (denyAuth) Login(string, string) (string, error)      { return "", errBadCredentials }
func (denyAuth) UserFromAuthHeader(string) (string, error) { return "", errMissingAuthorization }

func quietLogger() *log.Logger {
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return l
}

func newTestServer(store Store, market Market, auth Authenticator) *echo.Echo {
	e := echo.New()
	Register(e, store, market, auth, quietLogger())
	return e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesToken(t *testing.T) {
	auth := NewAuth([]byte("test-secret"), "admin", "hunter2")
	e := newTestServer(&mockStore{}, &mockMarket{}, auth)

	rec := doJSON(e, http.MethodPost, "/api/login", `{"username":"admin","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if _, err := auth.UserFromAuthHeader("Bearer " + resp.Token); err != nil {
		t.Fatalf("issued token did not verify: %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	auth := NewAuth([]byte("test-secret"), "admin", "hunter2")
	e := newTestServer(&mockStore{}, &mockMarket{}, auth)

	rec := doJSON(e, http.MethodPost, "/api/login", `{"username":"admin","password":"nope"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRoutesRequireAuth(t *testing.T) {
	e := newTestServer(&mockStore{}, &mockMarket{}, denyAuth{})

	rec := doJSON(e, http.MethodGet, "/api/board", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestGetBoardIncludesSummary(t *testing.T) {
	store := &mockStore{board: domain.Board{
		Tasks: []domain.Task{
			{ID: "t1", Title: "Read", Status: "TODO"},
			{ID: "t2", Title: "Run", Status: "DONE"},
		},
		Columns: []domain.Column{{ID: "TODO", Title: "To Do", Color: domain.ColorBlue}},
		Assets: []domain.Asset{{
			ID: "a1", Symbol: "MSFT", Type: domain.AssetStock,
			Quantity:     decimal.RequireFromString("2"),
			BuyPrice:     decimal.RequireFromString("10"),
			CurrentPrice: decimal.RequireFromString("15"),
		}},
		Settings: domain.Settings{InvestmentGoal: decimal.RequireFromString("100"), TargetYear: 2030},
	}}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodGet, "/api/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	var resp struct {
		Tasks   []domain.Task           `json:"tasks"`
		Assets  []domain.Asset          `json:"assets"`
		Summary domain.PortfolioSummary `json:"summary"`
	}
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Tasks) != 2 || len(resp.Assets) != 1 {
		t.Fatalf("unexpected board: %+v", resp)
	}
	if !resp.Summary.Value.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unexpected summary value: %s", resp.Summary.Value)
	}
	if !resp.Summary.GoalProgress.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unexpected goal progress: %s", resp.Summary.GoalProgress)
	}
}

func TestGetBoardBackendFailure(t *testing.T) {
	store := &mockStore{snapshotErr: fmt.Errorf("%w: dial tcp", domain.ErrBackendUnavailable)}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodGet, "/api/board", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCreateTask(t *testing.T) {
	store := &mockStore{}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	body := `{"title":"Read a chapter","category":"Learning","status":"TODO","dueDate":"2026-08-31"}`
	rec := doJSON(e, http.MethodPost, "/api/tasks", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	if len(store.createdTasks) != 1 {
		t.Fatalf("expected 1 created task, got %d", len(store.createdTasks))
	}
	created := store.createdTasks[0]
	if created.Title != "Read a chapter" || created.Category != domain.CategoryLearning {
		t.Fatalf("unexpected task: %+v", created)
	}
	if created.DueDate.String() != "2026-08-31" {
		t.Fatalf("unexpected due date: %s", created.DueDate)
	}
}

func TestCreateTaskValidationFailure(t *testing.T) {
	store := &mockStore{writeErr: domain.Invalid("title", "must not be blank")}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodPost, "/api/tasks", `{"title":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCreateTaskRejectsUnknownFields(t *testing.T) {
	e := newTestServer(&mockStore{}, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodPost, "/api/tasks", `{"title":"x","bogus":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestUpdateTaskAppliesPatch(t *testing.T) {
	store := &mockStore{board: domain.Board{
		Tasks: []domain.Task{{ID: "t1", Title: "Read", Status: "TODO"}},
	}}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodPatch, "/api/tasks/t1", `{"status":"DONE"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	var task domain.Task
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if task.Status != "DONE" || task.Title != "Read" {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	e := newTestServer(&mockStore{}, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodPatch, "/api/tasks/missing", `{"status":"DONE"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCreateColumnDerivesID(t *testing.T) {
	store := &mockStore{}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodPost, "/api/columns", `{"title":"In Review","color":"purple"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	var col domain.Column
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &col); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if col.ID != "IN_REVIEW" {
		t.Fatalf("unexpected column id: %s", col.ID)
	}
}

func TestDeleteColumnInUse(t *testing.T) {
	store := &mockStore{writeErr: domain.ErrColumnInUse}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodDelete, "/api/columns/TODO", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCreateAssetUsesQuoteWhenPriceMissing(t *testing.T) {
	store := &mockStore{}
	market := &mockMarket{quotes: map[string]decimal.Decimal{
		"MSFT": decimal.RequireFromString("123.45"),
	}}
	e := newTestServer(store, market, mockAuth{})

	rec := doJSON(e, http.MethodPost, "/api/assets", `{"symbol":"MSFT","type":"Stock","quantity":2,"buyPrice":100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	if len(store.createdAssets) != 1 {
		t.Fatalf("expected 1 created asset, got %d", len(store.createdAssets))
	}
	if !store.createdAssets[0].CurrentPrice.Equal(decimal.RequireFromString("123.45")) {
		t.Fatalf("unexpected current price: %s", store.createdAssets[0].CurrentPrice)
	}
}

func TestCreateAssetFallsBackToBuyPrice(t *testing.T) {
	store := &mockStore{}
	market := &mockMarket{quoteErr: map[string]error{
		"MSFT": fmt.Errorf("%w: no quote", domain.ErrExternalFetchFailed),
	}}
	e := newTestServer(store, market, mockAuth{})

	rec := doJSON(e, http.MethodPost, "/api/assets", `{"symbol":"MSFT","quantity":2,"buyPrice":100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	if !store.createdAssets[0].CurrentPrice.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("unexpected current price: %s", store.createdAssets[0].CurrentPrice)
	}
}

func TestRefreshAssetsReportsPerSymbolOutcome(t *testing.T) {
	store := &mockStore{board: domain.Board{Assets: []domain.Asset{
		{ID: "a1", Symbol: "AAA", Quantity: decimal.RequireFromString("1")},
		{ID: "a2", Symbol: "BBB", Quantity: decimal.RequireFromString("1")},
	}}}
	market := &mockMarket{
		quotes:   map[string]decimal.Decimal{"AAA": decimal.RequireFromString("10")},
		quoteErr: map[string]error{"BBB": fmt.Errorf("%w: no quote", domain.ErrExternalFetchFailed)},
	}
	e := newTestServer(store, market, mockAuth{})

	rec := doJSON(e, http.MethodPost, "/api/assets/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}
	var resp refreshResponse
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Refreshed) != 1 || resp.Refreshed[0] != "AAA" {
		t.Fatalf("unexpected refreshed list: %v", resp.Refreshed)
	}
	if len(resp.Failed) != 1 || resp.Failed[0] != "BBB" {
		t.Fatalf("unexpected failed list: %v", resp.Failed)
	}
	patch, ok := store.assetPatches["a1"]
	if !ok || patch.CurrentPrice == nil || !patch.CurrentPrice.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected a1 price patch, got %+v", patch)
	}
	if _, ok := store.assetPatches["a2"]; ok {
		t.Fatal("failed symbol must not be patched")
	}
}

func TestWriteFailureSurfacesAsBadGateway(t *testing.T) {
	store := &mockStore{writeErr: fmt.Errorf("%w: boom", domain.ErrBackendUnavailable)}
	e := newTestServer(store, &mockMarket{}, mockAuth{})

	rec := doJSON(e, http.MethodDelete, "/api/tasks/t1", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(&mockStore{}, &mockMarket{}, denyAuth{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
