package api

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"lifeboard/date"
	"lifeboard/domain"
)

const requestBodyMaxSize = 1 << 20

// Register wires up all API routes on the provided Echo instance. Everything
// under /api except login sits behind the session-token middleware.
func Register(e *echo.Echo, store Store, market Market, auth Authenticator, logger *log.Logger) {
	e.POST("/api/login", login(auth))
	e.GET("/healthz", healthz())

	g := e.Group("/api", requireAuth(auth))
	g.GET("/board", getBoard(store, logger))
	g.POST("/tasks", createTask(store))
	g.PATCH("/tasks/:id", updateTask(store))
	g.DELETE("/tasks/:id", deleteTask(store))
	g.POST("/columns", createColumn(store))
	g.DELETE("/columns/:id", deleteColumn(store))
	g.POST("/assets", createAsset(store, market, logger))
	g.PATCH("/assets/:id", updateAsset(store))
	g.DELETE("/assets/:id", deleteAsset(store))
	g.POST("/assets/refresh", refreshAssets(store, market, logger))
	g.GET("/stock-options", getStockOptions(market))
	g.GET("/stock-options/export", exportStockOptions(market))
}

func requireAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := auth.UserFromAuthHeader(c.Request().Header.Get("Authorization"))
			if err != nil {
				return c.String(http.StatusUnauthorized, err.Error())
			}
			c.Set("user", user)
			return next(c)
		}
	}
}

func decodeBody(c echo.Context, out any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, requestBodyMaxSize))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// errorStatus maps the store error taxonomy onto HTTP statuses. Backend
// write failures surface as 502 so the client can tell a rejected input
// from an unreachable backend.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrColumnInUse):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrBackendRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func login(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		token, err := auth.Login(req.Username, req.Password)
		if err != nil {
			return c.String(http.StatusUnauthorized, "invalid credentials")
		}
		return c.JSON(http.StatusOK, loginResponse{Token: token})
	}
}

type boardResponse struct {
	domain.Board
	Summary domain.PortfolioSummary `json:"summary"`
}

func getBoard(store Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newBoardRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		board, fetchErr := store.Snapshot(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(errorStatus(fetchErr), fetchErr.Error())
			return err
		}
		metrics.SetTasksReturned(len(board.Tasks))
		metrics.SetAssetsReturned(len(board.Assets))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, boardResponse{
			Board:   board,
			Summary: domain.Summarize(board.Assets, board.Settings),
		})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type createTaskRequest struct {
	Title    string          `json:"title"`
	Category domain.Category `json:"category"`
	Status   string          `json:"status"`
	DueDate  date.Date       `json:"dueDate"`
}

func createTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := store.CreateTask(c.Request().Context(), domain.Task{
			Title:    req.Title,
			Category: req.Category,
			Status:   req.Status,
			DueDate:  req.DueDate,
		})
		if err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch domain.TaskPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		task, err := store.UpdateTask(c.Request().Context(), c.Param("id"), patch)
		if err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, task)
	}
}

func deleteTask(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type createColumnRequest struct {
	Title string       `json:"title"`
	Color domain.Color `json:"color"`
}

func createColumn(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		col, err := store.CreateColumn(c.Request().Context(), req.Title, req.Color)
		if err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.JSON(http.StatusCreated, col)
	}
}

func deleteColumn(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteColumn(c.Request().Context(), c.Param("id")); err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type createAssetRequest struct {
	Symbol       string           `json:"symbol"`
	Type         domain.AssetType `json:"type"`
	Quantity     decimal.Decimal  `json:"quantity"`
	BuyPrice     decimal.Decimal  `json:"buyPrice"`
	CurrentPrice decimal.Decimal  `json:"currentPrice"`
}

// createAsset looks up the market price when none was supplied; a failed
// lookup falls back to the buy price so the holding is still created.
func createAsset(store Store, market Market, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var req createAssetRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		asset := domain.Asset{
			Symbol:       req.Symbol,
			Type:         req.Type,
			Quantity:     req.Quantity,
			BuyPrice:     req.BuyPrice,
			CurrentPrice: req.CurrentPrice,
		}
		if asset.CurrentPrice.IsZero() {
			if quote, qerr := market.Quote(ctx, req.Symbol); qerr == nil {
				asset.CurrentPrice = quote
			} else {
				logger.WithError(qerr).WithField("symbol", req.Symbol).
					Warn("price lookup failed, using buy price")
				asset.CurrentPrice = req.BuyPrice
			}
		}
		created, err := store.CreateAsset(ctx, asset)
		if err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func updateAsset(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var patch domain.AssetPatch
		if err := decodeBody(c, &patch); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		asset, err := store.UpdateAsset(c.Request().Context(), c.Param("id"), patch)
		if err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, asset)
	}
}

func deleteAsset(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.DeleteAsset(c.Request().Context(), c.Param("id")); err != nil {
			return c.String(errorStatus(err), err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type refreshResponse struct {
	Refreshed []string `json:"refreshed"`
	Failed    []string `json:"failed"`
}

// refreshAssets fans out one quote fetch per holding and waits for all of
// them. A failed fetch leaves the stored price untouched and is only
// reported in the response.
func refreshAssets(store Store, market Market, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		board, err := store.Snapshot(ctx)
		if err != nil {
			return c.String(errorStatus(err), err.Error())
		}

		resp := refreshResponse{Refreshed: []string{}, Failed: []string{}}
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)
		for _, asset := range board.Assets {
			wg.Add(1)
			go func(a domain.Asset) {
				defer wg.Done()
				price, qerr := market.Quote(ctx, a.Symbol)
				if qerr == nil {
					_, qerr = store.UpdateAsset(ctx, a.ID, domain.AssetPatch{CurrentPrice: &price})
				}
				mu.Lock()
				defer mu.Unlock()
				if qerr != nil {
					logger.WithError(qerr).WithField("symbol", a.Symbol).Warn("price refresh failed")
					resp.Failed = append(resp.Failed, a.Symbol)
					return
				}
				resp.Refreshed = append(resp.Refreshed, a.Symbol)
			}(asset)
		}
		wg.Wait()

		sort.Strings(resp.Refreshed)
		sort.Strings(resp.Failed)
		return c.JSON(http.StatusOK, resp)
	}
}
