// Package market fetches stock quotes and options chains from the public
// Yahoo Finance JSON endpoints. Fetches are best-effort: failures surface
// as ErrExternalFetchFailed and callers degrade to stale or default values.
package market

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"lifeboard/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Client talks to the quote and options endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a market data client. baseURL may be empty to use the
// public endpoint; tests point it at a local server.
func NewClient(baseURL string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// optionsPayload mirrors the options endpoint response.
type optionsPayload struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Quote           struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				PostMarketPrice    *float64 `json:"postMarketPrice"`
			} `json:"quote"`
			Options []struct {
				ExpirationDate int64                   `json:"expirationDate"`
				Calls          []domain.OptionContract `json:"calls"`
				Puts           []domain.OptionContract `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

// chartPayload mirrors the chart endpoint response, used as the last
// resort for a current price.
type chartPayload struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

func (c *Client) getJSON(ctx context.Context, addr string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (lifeboard)")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExternalFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d from %s", domain.ErrExternalFetchFailed, resp.StatusCode, addr)
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", domain.ErrExternalFetchFailed, err)
	}
	return nil
}

func expirationISO(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02")
}

// Chain fetches the options chain for a symbol. With an empty expiration
// the nearest one is used; otherwise expiration is an ISO date taken from a
// previous response's AllExpirations.
func (c *Client) Chain(ctx context.Context, symbol, expiration string) (domain.OptionsChain, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.OptionsChain{}, domain.Invalid("symbol", "must not be blank")
	}

	addr := fmt.Sprintf("%s/v7/finance/options/%s", c.baseURL, url.PathEscape(symbol))
	if expiration != "" {
		exp, err := time.Parse("2006-01-02", expiration)
		if err != nil {
			return domain.OptionsChain{}, domain.Invalid("expiration", "want an ISO date")
		}
		addr += fmt.Sprintf("?date=%d", exp.UTC().Unix())
	}

	var payload optionsPayload
	if err := c.getJSON(ctx, addr, &payload); err != nil {
		return domain.OptionsChain{}, err
	}
	if e := payload.OptionChain.Error; e != nil && e.Description != "" {
		return domain.OptionsChain{}, fmt.Errorf("%w: %s", domain.ErrExternalFetchFailed, e.Description)
	}
	if len(payload.OptionChain.Result) == 0 {
		return domain.OptionsChain{}, fmt.Errorf("%w: no options data available for %s", domain.ErrExternalFetchFailed, symbol)
	}
	result := payload.OptionChain.Result[0]
	if len(result.ExpirationDates) == 0 || len(result.Options) == 0 {
		return domain.OptionsChain{}, fmt.Errorf("%w: no options data available for %s", domain.ErrExternalFetchFailed, symbol)
	}

	chain := result.Options[0]
	if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
		return domain.OptionsChain{}, fmt.Errorf("%w: no options contracts found for %s", domain.ErrExternalFetchFailed, symbol)
	}

	expirations := make([]string, len(result.ExpirationDates))
	for i, d := range result.ExpirationDates {
		expirations[i] = expirationISO(d)
	}

	out := domain.OptionsChain{
		Symbol:         symbol,
		CurrentPrice:   c.currentPrice(ctx, symbol, result.Quote.RegularMarketPrice, result.Quote.PostMarketPrice),
		ExpirationDate: expirationISO(chain.ExpirationDate),
		AllExpirations: expirations,
		Calls:          chain.Calls,
		Puts:           chain.Puts,
		Timestamp:      time.Now().Format(time.RFC3339),
	}
	return out, nil
}

// currentPrice applies the quote fallback chain: the regular market price,
// then the post-market price, then the chart close, then zero.
func (c *Client) currentPrice(ctx context.Context, symbol string, regular, post *float64) float64 {
	if regular != nil && *regular != 0 {
		return *regular
	}
	if post != nil && *post != 0 {
		return *post
	}
	price, err := c.chartPrice(ctx, symbol)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Debug("chart price fallback failed")
		return 0
	}
	return price
}

func (c *Client) chartPrice(ctx context.Context, symbol string) (float64, error) {
	addr := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1d", c.baseURL, url.PathEscape(symbol))
	var payload chartPayload
	if err := c.getJSON(ctx, addr, &payload); err != nil {
		return 0, err
	}
	if len(payload.Chart.Result) == 0 || payload.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return 0, fmt.Errorf("%w: no price for %s", domain.ErrExternalFetchFailed, symbol)
	}
	return *payload.Chart.Result[0].Meta.RegularMarketPrice, nil
}

// Quote fetches the current market price for a symbol, used when syncing
// portfolio holdings.
func (c *Client) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return decimal.Zero, domain.Invalid("symbol", "must not be blank")
	}
	price, err := c.chartPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(price), nil
}
