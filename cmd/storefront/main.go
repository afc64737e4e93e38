package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"FurniStore/internal/cart"
	"FurniStore/internal/catalog"
	"FurniStore/internal/checkout"
	"FurniStore/internal/config"
	"FurniStore/internal/orders"
	"FurniStore/internal/session"
	"FurniStore/internal/sheets"
	"FurniStore/internal/storefront"
	"FurniStore/pkg/kit"
)

const startupTimeout = 15 * time.Second

func main() {
	cfg, cfgErr := config.Load()

	log := kit.NewLogger(cfg.Service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfgErr != nil {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	// Prices go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	proxies, err := kit.ParsePrefixes(cfg.TrustedProxies)
	if err != nil {
		log.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client := sheets.NewClient(sheets.Options{
		BaseURL:          cfg.SheetsBaseURL,
		Timeout:          cfg.SheetTimeout,
		FetchesPerSecond: cfg.SheetFetchRate,
		Burst:            2,
	}, log.Named("sheets"))
	parser := sheets.NewParser(log.Named("sheets"), reg)

	fallback, _ := catalog.ParseFallbackPolicy(cfg.CatalogFallback)
	store := catalog.NewStore(&catalog.SheetSource{
		Rows:    client,
		Parser:  parser,
		SheetID: cfg.ProductsSheetID,
	}, log.Named("catalog"), catalog.Options{
		TTL:      cfg.CatalogTTL,
		Fallback: fallback,
		Registry: reg,
	})
	if err := store.Refresh(ctx); err != nil {
		log.Warn("initial catalog load failed; will retry on first read", zap.Error(err))
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatal("store init failed", zap.String("cart_store", cfg.CartStore), zap.Error(err))
	}
	log.Info("stores ready", zap.String("cart_store", cfg.CartStore))

	carts := cart.NewRegistry(st.carts, log.Named("cart"), reg)
	carts.IdleTTL = cfg.CartIdleTTL

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go carts.Run(sweepCtx, cfg.CartIdleTTL/2)

	h := storefront.NewHandler(storefront.Deps{
		Catalog:             store,
		Carts:               carts,
		Orders:              orders.NewService(client, parser, cfg.OrdersSheetID, log.Named("orders")),
		Checkout:            checkout.NewService(st.checkout, cfg.CheckoutDelay, log.Named("checkout")),
		Tokens:              session.NewTokenMaker(cfg.SessionSecret, cfg.SessionTTL),
		OrdersLimiter:       kit.NewIPRateLimiter(cfg.OrdersPerMinute, time.Minute),
		CustomOrdersLimiter: kit.NewIPRateLimiter(cfg.CustomOrdersPerHour, time.Hour),
		Ready:               st.checks,
	}, storefront.HTTPDeps{
		Log:            log,
		Service:        cfg.Service,
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: proxies,
	})

	err = kit.RunHTTPServer(":"+cfg.Port, otelhttp.NewHandler(h, cfg.Service), log, func(context.Context) {
		stopSweep()
		st.close()
	})
	if err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

type stores struct {
	carts    cart.Persister
	checkout checkout.Store
	checks   []storefront.Check
	close    func()
}

// openStores builds the configured cart persister. Receipts and custom
// orders share the Postgres pool when there is one and stay in memory
// otherwise.
func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	st := stores{checkout: checkout.NewMemStore(), close: func() {}}

	switch cfg.CartStore {
	case config.CartStoreFile:
		p, err := cart.NewFilePersister(cfg.CartDir)
		if err != nil {
			return stores{}, err
		}
		st.carts = p

	case config.CartStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return stores{}, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return stores{}, fmt.Errorf("redis ping: %w", err)
		}
		st.carts = cart.NewRedisPersister(rdb, cfg.CartTTL)
		st.checks = []storefront.Check{{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }}}
		st.close = func() { _ = rdb.Close() }

	case config.CartStorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return stores{}, fmt.Errorf("postgres pool: %w", err)
		}
		carts := cart.NewPostgresPersister(pool)
		receipts := checkout.NewPostgresStore(pool)
		for _, ensure := range []func(context.Context) error{carts.EnsureSchema, receipts.EnsureSchema} {
			if err := ensure(ctx); err != nil {
				pool.Close()
				return stores{}, fmt.Errorf("ensure schema: %w", err)
			}
		}
		st.carts, st.checkout = carts, receipts
		st.checks = []storefront.Check{{Name: "postgres", Ping: carts.Ping}}
		st.close = pool.Close

	default:
		st.carts = cart.NewMemoryPersister()
	}

	return st, nil
}
