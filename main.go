package main

import (
	"crypto/tls"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"lifeboard/api"
	"lifeboard/bot"
	"lifeboard/market"
	"lifeboard/storage"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	store, err := newStore(cfg, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var source market.Source = market.NewClient(cfg.MarketBaseURL, logger)
	if cfg.RedisConnString != "" {
		ttl, err := cfg.ChainTTL()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		rc := redis.NewClient(redisOptions(cfg.RedisConnString))
		source = market.NewCache(source, rc, ttl, logger)
	}

	auth := api.NewAuth([]byte(cfg.AuthSecret), cfg.AuthUsername, cfg.AuthPassword)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Gzip())

	api.Register(e, store, source, auth, logger)

	if cfg.TelegramToken != "" {
		b := bot.New(store, source, bot.NewTelegramSender(cfg.TelegramToken), cfg.TelegramAllowedUsers, logger)
		e.POST("/bot/webhook", b.Webhook())
	}

	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}

// newStore picks the backend once at startup: the remote table store when a
// connection string is configured (with the local blob as read fallback),
// else the local blob alone.
func newStore(cfg Config, logger *log.Logger) (*storage.Facade, error) {
	local := storage.NewLocal(cfg.DataDir)
	if cfg.StorageConnString == "" {
		logger.Info("no storage connection string, using local blob store")
		return storage.New(local, nil, logger), nil
	}
	remote, err := storage.NewRemote(cfg.StorageConnString, storage.TableNames{
		Tasks:    cfg.TasksTable,
		Columns:  cfg.ColumnsTable,
		Assets:   cfg.AssetsTable,
		Settings: cfg.SettingsTable,
	}, logger)
	if err != nil {
		return nil, err
	}
	return storage.New(remote, local, logger), nil
}

// redisOptions accepts either a redis URL or the Azure-style
// "host:port,password=...,ssl=true" connection string.
func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
