package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"lifeboard/domain"
)

// Source is the market data surface the API layer consumes.
type Source interface {
	Chain(ctx context.Context, symbol, expiration string) (domain.OptionsChain, error)
	Quote(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// Cache wraps a Source with Redis-backed caching of options chains so
// repeated viewer loads don't hammer the upstream feed. The cache is
// best-effort: Redis failures fall through to a direct fetch.
type Cache struct {
	base   Source
	redis  *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// NewCache creates a caching Source wrapper using the provided Redis
// client and TTL.
func NewCache(base Source, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("market.NewCache: base source is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{base: base, redis: client, ttl: ttl, logger: logger}
}

func chainKey(symbol, expiration string) string {
	if expiration == "" {
		expiration = "nearest"
	}
	return fmt.Sprintf("chain:%s:%s", symbol, expiration)
}

func (c *Cache) Chain(ctx context.Context, symbol, expiration string) (domain.OptionsChain, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if chain, ok := c.loadChain(ctx, symbol, expiration); ok {
		return chain, nil
	}

	chain, err := c.base.Chain(ctx, symbol, expiration)
	if err != nil {
		return domain.OptionsChain{}, err
	}

	c.storeChain(ctx, symbol, expiration, chain)
	return chain, nil
}

func (c *Cache) loadChain(ctx context.Context, symbol, expiration string) (domain.OptionsChain, bool) {
	data, err := c.redis.Get(ctx, chainKey(symbol, expiration)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WithError(err).Debug("chain cache read failed")
		}
		return domain.OptionsChain{}, false
	}
	var chain domain.OptionsChain
	if err := json.Unmarshal(data, &chain); err != nil {
		c.logger.WithError(err).Debug("chain cache entry corrupt, refetching")
		return domain.OptionsChain{}, false
	}
	return chain, true
}

func (c *Cache) storeChain(ctx context.Context, symbol, expiration string, chain domain.OptionsChain) {
	data, err := json.Marshal(chain)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, chainKey(symbol, expiration), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("chain cache write failed")
	}
}

// Quote passes through uncached; holdings refresh on explicit user action
// and should see a live price.
func (c *Cache) Quote(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return c.base.Quote(ctx, symbol)
}

var _ Source = (*Cache)(nil)
var _ Source = (*Client)(nil)
