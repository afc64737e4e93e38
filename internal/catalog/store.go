package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 5 * time.Minute

var ErrUnavailable = errors.New("catalog unavailable")

// FallbackPolicy decides what a failed refresh leaves in the snapshot.
type FallbackPolicy string

const (
	FallbackRetain FallbackPolicy = "retain"
	FallbackSeed   FallbackPolicy = "seed"
	FallbackClear  FallbackPolicy = "clear"
)

func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackRetain, nil
	case FallbackRetain, FallbackSeed, FallbackClear:
		return p, nil
	}
	return "", fmt.Errorf("unknown catalog fallback policy %q", s)
}

type Options struct {
	TTL      time.Duration
	Fallback FallbackPolicy
	// Seed is served under FallbackSeed. Defaults to SeedProducts().
	Seed     []Product
	Registry prometheus.Registerer
	Now      func() time.Time
}

// Store is a read-through cache over a Source. A snapshot stays fresh for TTL
// after the last successful fetch; the first read after that waits for a
// refresh. Readers always receive copies.
type Store struct {
	src      Source
	log      *zap.Logger
	ttl      time.Duration
	fallback FallbackPolicy
	seed     []Product
	now      func() time.Time

	sf singleflight.Group

	mu        sync.RWMutex
	products  []Product
	loaded    bool
	fetched   bool
	fetchedAt time.Time

	refreshes *prometheus.CounterVec
	size      prometheus.Gauge
}

func NewStore(src Source, log *zap.Logger, opts Options) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackRetain
	}
	if opts.Seed == nil {
		opts.Seed = SeedProducts()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Store{
		src:      src,
		log:      log,
		ttl:      opts.TTL,
		fallback: opts.Fallback,
		seed:     opts.Seed,
		now:      opts.Now,
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_refresh_total",
			Help: "Catalog refresh attempts by result",
		}, []string{"result"}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_products",
			Help: "Products in the current catalog snapshot",
		}),
	}
	if opts.Registry != nil {
		opts.Registry.MustRegister(s.refreshes, s.size)
	}
	return s
}

// Refresh fetches a new snapshot regardless of its age. Concurrent callers
// share one fetch; a caller whose context ends stops waiting but does not
// cancel the fetch for the others.
func (s *Store) Refresh(ctx context.Context) error {
	ch := s.sf.DoChan("refresh", func() (any, error) {
		return nil, s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) refresh(ctx context.Context) error {
	products, err := s.src.FetchProducts(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.refreshes.WithLabelValues("error").Inc()

		switch s.fallback {
		case FallbackSeed:
			s.products = cloneAll(s.seed)
			s.loaded = true
		case FallbackClear:
			s.products = nil
			s.loaded = true
		}
		s.size.Set(float64(len(s.products)))

		s.log.Warn("catalog refresh failed",
			zap.Error(err),
			zap.String("fallback", string(s.fallback)),
			zap.Int("serving", len(s.products)),
		)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.products = products
	s.loaded = true
	s.fetched = true
	s.fetchedAt = s.now()
	s.refreshes.WithLabelValues("ok").Inc()
	s.size.Set(float64(len(products)))

	s.log.Info("catalog refreshed", zap.Int("products", len(products)))
	return nil
}

func (s *Store) stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.fetched || s.now().Sub(s.fetchedAt) >= s.ttl
}

func (s *Store) ensureFresh(ctx context.Context) error {
	if !s.stale() {
		return nil
	}

	err := s.Refresh(ctx)
	if err == nil {
		return nil
	}

	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return err
}

// inStock returns copies of the in-stock products in snapshot order.
func (s *Store) inStock(ctx context.Context) ([]Product, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if p.InStock {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *Store) GetAll(ctx context.Context) ([]Product, error) {
	return s.inStock(ctx)
}

func (s *Store) GetByID(ctx context.Context, id string) (Product, bool, error) {
	products, err := s.inStock(ctx)
	if err != nil {
		return Product{}, false, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

// GetByCategory returns every in-stock product for AllCategories or "".
func (s *Store) GetByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.Browse(ctx, NewBrowse().WithCategory(category))
}

// Search matches query case-insensitively against name, description and
// category. An empty query matches everything.
func (s *Store) Search(ctx context.Context, query string) ([]Product, error) {
	products, err := s.inStock(ctx)
	if err != nil {
		return nil, err
	}
	return filter(products, func(p Product) bool { return matches(p, query) }), nil
}

func (s *Store) Browse(ctx context.Context, b Browse) ([]Product, error) {
	products, err := s.inStock(ctx)
	if err != nil {
		return nil, err
	}
	return b.Apply(products), nil
}

func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	products, err := s.inStock(ctx)
	if err != nil {
		return nil, err
	}
	return countCategories(products), nil
}

// Ping reports whether the store has anything to serve. While nothing is
// loaded it retries the fetch, so a failed startup load recovers without
// waiting for a catalog read.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.ensureFresh(ctx)
}

// FetchedAt is the time of the last successful refresh.
func (s *Store) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

func cloneAll(in []Product) []Product {
	out := make([]Product, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

func filter(in []Product, keep func(Product) bool) []Product {
	out := make([]Product, 0, len(in))
	for _, p := range in {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
