package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config is the process configuration. A TOML file (CONFIG_FILE) provides
// the base for local development; environment variables override it so the
// hosted deployment needs no file at all.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	Debug      bool   `toml:"debug"`

	DataDir           string `toml:"data_dir"`
	StorageConnString string `toml:"storage_connection_string"`
	TasksTable        string `toml:"tasks_table"`
	ColumnsTable      string `toml:"columns_table"`
	AssetsTable       string `toml:"assets_table"`
	SettingsTable     string `toml:"settings_table"`

	RedisConnString string `toml:"redis_connection_string"`
	ChainCacheTTL   string `toml:"chain_cache_ttl"` // time.ParseDuration syntax

	MarketBaseURL string `toml:"market_base_url"`

	AuthSecret   string `toml:"auth_secret"`
	AuthUsername string `toml:"auth_username"`
	AuthPassword string `toml:"auth_password"`

	TelegramToken        string  `toml:"telegram_token"`
	TelegramAllowedUsers []int64 `toml:"telegram_allowed_users"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr:    ":8080",
		DataDir:       ".",
		TasksTable:    "tasks",
		ColumnsTable:  "columns",
		AssetsTable:   "assets",
		SettingsTable: "settings",
		ChainCacheTTL: "5m",
		AuthUsername:  "admin",
	}
}

// LoadConfig builds the configuration from the optional TOML file named by
// CONFIG_FILE, then applies environment overrides and validates.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if cfg.AuthSecret == "" {
		return cfg, errors.New("auth secret is required (AUTH_SECRET)")
	}
	if cfg.AuthPassword == "" {
		return cfg, errors.New("auth password is required (AUTH_PASSWORD)")
	}
	if _, err := cfg.ChainTTL(); err != nil {
		return cfg, fmt.Errorf("invalid chain cache ttl: %w", err)
	}
	return cfg, nil
}

// ChainTTL parses the configured options cache lifetime.
func (c Config) ChainTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.ChainCacheTTL)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.StorageConnString, "STORAGE_CONNECTION_STRING")
	setString(&cfg.TasksTable, "TASKS_TABLE")
	setString(&cfg.ColumnsTable, "COLUMNS_TABLE")
	setString(&cfg.AssetsTable, "ASSETS_TABLE")
	setString(&cfg.SettingsTable, "SETTINGS_TABLE")
	setString(&cfg.RedisConnString, "REDIS_CONNECTION_STRING")
	setString(&cfg.MarketBaseURL, "MARKET_BASE_URL")
	setString(&cfg.AuthSecret, "AUTH_SECRET")
	setString(&cfg.AuthUsername, "AUTH_USERNAME")
	setString(&cfg.AuthPassword, "AUTH_PASSWORD")
	setString(&cfg.TelegramToken, "TELEGRAM_TOKEN")

	if v, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		cfg.Debug = v
	}
	setString(&cfg.ChainCacheTTL, "CHAIN_CACHE_TTL")
	if v := os.Getenv("TELEGRAM_ALLOWED_USERS"); v != "" {
		cfg.TelegramAllowedUsers = parseUserIDs(v)
	}

	// Azure Functions custom handlers pass the port this way.
	if port, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		cfg.ListenAddr = ":" + port
	} else if port, ok := os.LookupEnv("PORT"); ok {
		cfg.ListenAddr = ":" + port
	}
}

func parseUserIDs(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
