package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"lifeboard/domain"
	"lifeboard/view"
)

// optionsErrorResponse is the error shape of the options endpoints: a
// user-visible message plus the time of the failure.
type optionsErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func optionsError(c echo.Context, status int, msg string) error {
	return c.JSON(status, optionsErrorResponse{
		Error:     msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func optionsStatus(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrExternalFetchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func getStockOptions(market Market) echo.HandlerFunc {
	return func(c echo.Context) error {
		symbol := strings.TrimSpace(c.QueryParam("symbol"))
		if symbol == "" {
			return optionsError(c, http.StatusBadRequest, "symbol is required")
		}
		chain, err := market.Chain(c.Request().Context(), symbol, c.QueryParam("expiration"))
		if err != nil {
			return optionsError(c, optionsStatus(err), err.Error())
		}
		return c.JSON(http.StatusOK, chain)
	}
}

// exportStockOptions streams one side of the chain as CSV, after running it
// through the same search/filter/sort pipeline the table view uses.
func exportStockOptions(market Market) echo.HandlerFunc {
	return func(c echo.Context) error {
		symbol := strings.TrimSpace(c.QueryParam("symbol"))
		if symbol == "" {
			return optionsError(c, http.StatusBadRequest, "symbol is required")
		}
		side := c.QueryParam("side")
		if side == "" {
			side = "calls"
		}
		if side != "calls" && side != "puts" {
			return optionsError(c, http.StatusBadRequest, "side must be calls or puts")
		}

		chain, err := market.Chain(c.Request().Context(), symbol, c.QueryParam("expiration"))
		if err != nil {
			return optionsError(c, optionsStatus(err), err.Error())
		}
		rows := chain.Calls
		if side == "puts" {
			rows = chain.Puts
		}

		filters, err := optionFilters(c)
		if err != nil {
			return optionsError(c, http.StatusBadRequest, err.Error())
		}
		sortSpec := view.Sort{Column: c.QueryParam("sortBy"), Desc: c.QueryParam("desc") == "true"}
		cols := optionColumns()
		rows = view.Apply(cols, rows, c.QueryParam("search"), filters, sortSpec)

		filename := fmt.Sprintf("%s_%s_%s.csv", chain.Symbol, side, time.Now().UTC().Format("2006-01-02"))
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
		return c.Blob(http.StatusOK, "text/csv", []byte(view.ExportCSV(cols, rows)))
	}
}

func optionFilters(c echo.Context) ([]view.Filter, error) {
	var filters []view.Filter
	strike := view.Filter{Column: "strike"}
	if raw := c.QueryParam("minStrike"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid minStrike %q", raw)
		}
		strike.Min = &v
	}
	if raw := c.QueryParam("maxStrike"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid maxStrike %q", raw)
		}
		strike.Max = &v
	}
	if strike.Min != nil || strike.Max != nil {
		filters = append(filters, strike)
	}
	if raw := c.QueryParam("itm"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid itm %q", raw)
		}
		filters = append(filters, view.Filter{Column: "itm", Equals: &v})
	}
	return filters, nil
}

func optionColumns() []view.Column[domain.OptionContract] {
	return []view.Column[domain.OptionContract]{
		view.TextColumn("contract", func(o domain.OptionContract) string { return o.ContractSymbol }),
		view.NumberColumn("strike", optionNumber(func(o domain.OptionContract) *float64 { return o.Strike })),
		view.NumberColumn("lastPrice", optionNumber(func(o domain.OptionContract) *float64 { return o.LastPrice })),
		view.NumberColumn("bid", optionNumber(func(o domain.OptionContract) *float64 { return o.Bid })),
		view.NumberColumn("ask", optionNumber(func(o domain.OptionContract) *float64 { return o.Ask })),
		view.NumberColumn("volume", optionNumber(func(o domain.OptionContract) *float64 { return o.Volume })),
		view.NumberColumn("openInterest", optionNumber(func(o domain.OptionContract) *float64 { return o.OpenInterest })),
		view.NumberColumn("impliedVolatility", optionNumber(func(o domain.OptionContract) *float64 { return o.ImpliedVolatility })),
		view.BoolColumn("itm", func(o domain.OptionContract) bool { return o.InTheMoney }),
	}
}

func optionNumber(f func(domain.OptionContract) *float64) func(domain.OptionContract) (float64, bool) {
	return func(o domain.OptionContract) (float64, bool) {
		v := f(o)
		if v == nil {
			return 0, false
		}
		return *v, true
	}
}
