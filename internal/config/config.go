package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FurniStore/internal/catalog"
	"FurniStore/pkg/kit"
)

const (
	CartStoreMemory   = "memory"
	CartStoreFile     = "file"
	CartStoreRedis    = "redis"
	CartStorePostgres = "postgres"
)

type Config struct {
	Service  string `yaml:"service"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	SheetsBaseURL   string        `yaml:"sheets_base_url"`
	ProductsSheetID string        `yaml:"products_sheet_id"`
	OrdersSheetID   string        `yaml:"orders_sheet_id"`
	SheetTimeout    time.Duration `yaml:"sheet_timeout"`
	SheetFetchRate  float64       `yaml:"sheet_fetch_rate"`

	CatalogTTL      time.Duration `yaml:"catalog_ttl"`
	CatalogFallback string        `yaml:"catalog_fallback"`

	CartStore   string        `yaml:"cart_store"`
	CartDir     string        `yaml:"cart_dir"`
	CartTTL     time.Duration `yaml:"cart_ttl"`
	CartIdleTTL time.Duration `yaml:"cart_idle_ttl"`
	RedisURL    string        `yaml:"redis_url"`
	DatabaseURL string        `yaml:"database_url"`

	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	MetricsToken  string        `yaml:"metrics_token"`
	CORSOrigins   []string      `yaml:"cors_origins"`

	// TrustedProxies may set the client address through X-Forwarded-For.
	TrustedProxies []string `yaml:"trusted_proxies"`

	CheckoutDelay       time.Duration `yaml:"checkout_delay"`
	OrdersPerMinute     int           `yaml:"orders_per_minute"`
	CustomOrdersPerHour int           `yaml:"custom_orders_per_hour"`
}

func Defaults() Config {
	return Config{
		Service:  "storefront",
		Port:     "8080",
		LogLevel: "info",

		SheetsBaseURL:   "https://docs.google.com",
		ProductsSheetID: "14Nz-tIw34VPR6IYUmVl_6HjGZZS-q7CzhIOUBC9vlX0",
		OrdersSheetID:   "1v8BSvIPWlcjct5LG-sm0JFkWc6e_ew59BLVMSXsWp6U",
		SheetTimeout:    10 * time.Second,
		SheetFetchRate:  2,

		CatalogTTL:      catalog.DefaultTTL,
		CatalogFallback: string(catalog.FallbackRetain),

		CartStore:   CartStoreMemory,
		CartDir:     "data/carts",
		CartTTL:     30 * 24 * time.Hour,
		CartIdleTTL: 30 * time.Minute,

		SessionTTL: 30 * 24 * time.Hour,

		CheckoutDelay:       3 * time.Second,
		OrdersPerMinute:     20,
		CustomOrdersPerHour: 10,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables. A .env file in the working
// directory is read into the environment first.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	c.Service = getenv("SERVICE_NAME", c.Service)
	c.Port = getenv("PORT", c.Port)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)

	c.SheetsBaseURL = getenv("SHEETS_BASE_URL", c.SheetsBaseURL)
	c.ProductsSheetID = getenv("PRODUCTS_SHEET_ID", c.ProductsSheetID)
	c.OrdersSheetID = getenv("ORDERS_SHEET_ID", c.OrdersSheetID)
	c.CatalogFallback = getenv("CATALOG_FALLBACK", c.CatalogFallback)

	c.CartStore = getenv("CART_STORE", c.CartStore)
	c.CartDir = getenv("CART_DIR", c.CartDir)
	c.RedisURL = getenv("REDIS_URL", c.RedisURL)
	c.DatabaseURL = getenv("DATABASE_URL", c.DatabaseURL)

	c.SessionSecret = getenv("SESSION_SECRET", c.SessionSecret)
	c.MetricsToken = getenv("METRICS_TOKEN", c.MetricsToken)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitList(v)
	}

	var errs []error
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"SHEET_TIMEOUT", &c.SheetTimeout},
		{"CATALOG_TTL", &c.CatalogTTL},
		{"CART_TTL", &c.CartTTL},
		{"CART_IDLE_TTL", &c.CartIdleTTL},
		{"SESSION_TTL", &c.SessionTTL},
		{"CHECKOUT_DELAY", &c.CheckoutDelay},
	} {
		errs = append(errs, getDuration(d.key, d.dst))
	}
	errs = append(errs,
		getInt("ORDERS_PER_MINUTE", &c.OrdersPerMinute),
		getInt("CUSTOM_ORDERS_PER_HOUR", &c.CustomOrdersPerHour),
		getFloat("SHEET_FETCH_RATE", &c.SheetFetchRate),
	)
	return errors.Join(errs...)
}

// Validate reports every setting the storefront cannot start with.
func (c Config) Validate() error {
	var errs []error

	if _, err := catalog.ParseFallbackPolicy(c.CatalogFallback); err != nil {
		errs = append(errs, err)
	}
	if c.CatalogTTL <= 0 {
		errs = append(errs, errors.New("CATALOG_TTL must be positive"))
	}
	if c.ProductsSheetID == "" {
		errs = append(errs, errors.New("PRODUCTS_SHEET_ID is required"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET is required and must be at least 32 chars"))
	}
	if c.CartIdleTTL <= 0 {
		errs = append(errs, errors.New("CART_IDLE_TTL must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.CheckoutDelay < 0 {
		errs = append(errs, errors.New("CHECKOUT_DELAY must not be negative"))
	}
	if _, err := kit.ParsePrefixes(c.TrustedProxies); err != nil {
		errs = append(errs, err)
	}
	if c.OrdersPerMinute <= 0 || c.CustomOrdersPerHour <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}

	switch c.CartStore {
	case CartStoreMemory:
	case CartStoreFile:
		if c.CartDir == "" {
			errs = append(errs, errors.New("CART_DIR is required for the file cart store"))
		}
	case CartStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis cart store"))
		}
	case CartStorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres cart store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CART_STORE %q", c.CartStore))
	}

	return errors.Join(errs...)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, dst *time.Duration) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = d
	return nil
}

func getInt(k string, dst *int) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = n
	return nil
}

func getFloat(k string, dst *float64) error {
	v := os.Getenv(k)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", k, err)
	}
	*dst = f
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
