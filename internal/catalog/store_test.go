package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"FurniStore/internal/sheets"
)

type fakeSource struct {
	mu       sync.Mutex
	products []Product
	err      error
	calls    atomic.Int32
	gate     chan struct{}
}

func (f *fakeSource) FetchProducts(ctx context.Context) ([]Product, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return cloneAll(f.products), nil
}

func (f *fakeSource) set(products []Product, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products, f.err = products, err
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func product(id, name, category string, price int64, inStock bool) Product {
	return Product{
		ID:       id,
		Name:     name,
		Category: category,
		Price:    decimal.NewFromInt(price),
		Images:   []string{DefaultImage},
		InStock:  inStock,
	}
}

func newTestStore(src Source, c *clock, policy FallbackPolicy) *Store {
	return NewStore(src, zap.NewNop(), Options{
		TTL:      DefaultTTL,
		Fallback: policy,
		Now:      c.now,
		Registry: prometheus.NewRegistry(),
	})
}

func TestStore_GetAllFiltersOutOfStock(t *testing.T) {
	src := &fakeSource{products: []Product{
		product("A", "Oak Table", "dining-tables", 899, true),
		product("B", "Pine Bench", "dining-chairs", 449, false),
	}}
	s := newTestStore(src, &clock{t: time.Unix(0, 0)}, FallbackRetain)

	got, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != "A" {
		t.Fatalf("got %+v", got)
	}

	if _, ok, _ := s.GetByID(context.Background(), "B"); ok {
		t.Fatalf("out-of-stock product must not be returned by id")
	}
	if p, ok, _ := s.GetByID(context.Background(), "A"); !ok || p.Name != "Oak Table" {
		t.Fatalf("GetByID(A)=%+v ok=%v", p, ok)
	}
}

func TestStore_ReadThroughCache(t *testing.T) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	src := &fakeSource{products: []Product{product("A", "Oak Table", "dining-tables", 899, true)}}
	s := newTestStore(src, c, FallbackRetain)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.GetAll(ctx); err != nil {
			t.Fatalf("GetAll: %v", err)
		}
	}
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("fetches=%d want 1 while fresh", n)
	}

	c.advance(DefaultTTL - time.Second)
	_, _ = s.GetAll(ctx)
	if n := src.calls.Load(); n != 1 {
		t.Fatalf("fetches=%d want 1 just before expiry", n)
	}

	c.advance(time.Second)
	_, _ = s.GetAll(ctx)
	if n := src.calls.Load(); n != 2 {
		t.Fatalf("fetches=%d want 2 after expiry", n)
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if n := src.calls.Load(); n != 3 {
		t.Fatalf("fetches=%d want 3 after forced refresh", n)
	}
	if got := testutil.ToFloat64(s.refreshes.WithLabelValues("ok")); got != 3 {
		t.Fatalf("ok refreshes=%v", got)
	}
}

func TestStore_FallbackPolicies(t *testing.T) {
	boom := errors.New("sheet down")
	good := []Product{product("A", "Oak Table", "dining-tables", 899, true)}

	t.Run("retain keeps last good snapshot", func(t *testing.T) {
		c := &clock{t: time.Unix(0, 0)}
		src := &fakeSource{products: good}
		s := newTestStore(src, c, FallbackRetain)

		if _, err := s.GetAll(context.Background()); err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		src.set(nil, boom)
		c.advance(DefaultTTL)

		got, err := s.GetAll(context.Background())
		if err != nil {
			t.Fatalf("GetAll after failure: %v", err)
		}
		if len(got) != 1 || got[0].ID != "A" {
			t.Fatalf("got %+v", got)
		}

		if err := s.Refresh(context.Background()); !errors.Is(err, ErrUnavailable) || !errors.Is(err, boom) {
			t.Fatalf("Refresh err=%v", err)
		}
	})

	t.Run("retain with nothing loaded fails", func(t *testing.T) {
		s := newTestStore(&fakeSource{err: boom}, &clock{}, FallbackRetain)
		if _, err := s.GetAll(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("err=%v", err)
		}
		if err := s.Ping(context.Background()); err == nil {
			t.Fatalf("Ping must fail before first load")
		}
	})

	t.Run("seed serves showroom set", func(t *testing.T) {
		s := newTestStore(&fakeSource{err: boom}, &clock{}, FallbackSeed)
		got, err := s.GetAll(context.Background())
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		if len(got) != len(SeedProducts()) {
			t.Fatalf("got %d products", len(got))
		}
	})

	t.Run("clear empties the snapshot", func(t *testing.T) {
		c := &clock{}
		src := &fakeSource{products: good}
		s := newTestStore(src, c, FallbackClear)
		_, _ = s.GetAll(context.Background())

		src.set(nil, boom)
		c.advance(DefaultTTL)

		got, err := s.GetAll(context.Background())
		if err != nil {
			t.Fatalf("GetAll: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("got %+v", got)
		}
	})
}

func TestStore_PingRecoversAfterFailedStartup(t *testing.T) {
	src := &fakeSource{err: errors.New("sheet down")}
	s := newTestStore(src, &clock{}, FallbackRetain)

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatalf("startup Refresh must fail")
	}
	if err := s.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Ping err=%v", err)
	}

	src.set([]Product{product("A", "Oak Table", "dining-tables", 899, true)}, nil)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping after recovery: %v", err)
	}
	if got := src.calls.Load(); got != 3 {
		t.Fatalf("fetches=%d want 3", got)
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got := src.calls.Load(); got != 3 {
		t.Fatalf("loaded Ping must not fetch, fetches=%d", got)
	}
}

func TestStore_ConcurrentReadsShareOneFetch(t *testing.T) {
	src := &fakeSource{
		products: []Product{product("A", "Oak Table", "dining-tables", 899, true)},
		gate:     make(chan struct{}),
	}
	s := newTestStore(src, &clock{t: time.Unix(0, 0)}, FallbackRetain)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.GetAll(context.Background())
		}()
	}

	for src.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	if n := src.calls.Load(); n != 1 {
		t.Fatalf("fetches=%d want 1", n)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	src := &fakeSource{products: []Product{product("A", "Oak Table", "dining-tables", 899, true)}}
	s := newTestStore(src, &clock{t: time.Unix(0, 0)}, FallbackRetain)

	got, _ := s.GetAll(context.Background())
	got[0].Name = "mutated"
	got[0].Images[0] = "mutated"

	again, _ := s.GetAll(context.Background())
	if again[0].Name != "Oak Table" || again[0].Images[0] != DefaultImage {
		t.Fatalf("snapshot leaked: %+v", again[0])
	}
}

func TestStore_SearchAndCategory(t *testing.T) {
	src := &fakeSource{products: []Product{
		product("1", "Oak Dining Table", "dining-tables", 899, true),
		product("2", "Chesterfield Sofa", "sofas", 1299, true),
		product("3", "Corner Sofa", "sofas", 999, true),
		product("4", "Oak Bedside", "bedside-tables", 189, true),
	}}
	src.products[2].Description = "Solid OAK frame"
	s := newTestStore(src, &clock{t: time.Unix(0, 0)}, FallbackRetain)
	ctx := context.Background()

	ids := func(ps []Product) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		return out
	}

	sofas, _ := s.GetByCategory(ctx, "sofas")
	if got := ids(sofas); len(got) != 2 || got[0] != "2" || got[1] != "3" {
		t.Fatalf("sofas=%v", got)
	}

	all, _ := s.GetByCategory(ctx, AllCategories)
	if len(all) != 4 {
		t.Fatalf("all=%v", ids(all))
	}

	oak, _ := s.Search(ctx, "oak")
	if got := ids(oak); len(got) != 3 || got[0] != "1" || got[1] != "3" || got[2] != "4" {
		t.Fatalf("oak=%v", got)
	}

	byCategoryText, _ := s.Search(ctx, "BEDSIDE")
	if got := ids(byCategoryText); len(got) != 1 || got[0] != "4" {
		t.Fatalf("bedside=%v", got)
	}

	b := NewBrowse().WithCategory("sofas").WithQuery("oak")
	if b.Category != AllCategories || b.Query != "oak" {
		t.Fatalf("browse=%+v", b)
	}
	browsed, _ := s.Browse(ctx, b)
	if len(browsed) != 3 {
		t.Fatalf("browse results=%v", ids(browsed))
	}

	b = b.WithCategory("sofas")
	if b.Query != "" || b.Category != "sofas" {
		t.Fatalf("browse=%+v", b)
	}
}

func TestStore_Categories(t *testing.T) {
	src := &fakeSource{products: []Product{
		product("1", "Oak Dining Table", "dining-tables", 899, true),
		product("2", "Chesterfield Sofa", "sofas", 1299, true),
		product("3", "Garden Swing", "outdoor-swings", 2499, true),
		product("4", "Old Sofa", "sofas", 99, false),
	}}
	s := newTestStore(src, &clock{t: time.Unix(0, 0)}, FallbackRetain)

	cats, err := s.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if cats[0].ID != AllCategories || cats[0].Count != 3 {
		t.Fatalf("all=%+v", cats[0])
	}

	byID := map[string]Category{}
	for _, c := range cats {
		byID[c.ID] = c
	}
	if byID["sofas"].Count != 1 || byID["beds"].Count != 0 {
		t.Fatalf("counts=%+v", byID)
	}
	last := cats[len(cats)-1]
	if last.ID != "outdoor-swings" || last.Name != "Outdoor Swings" || last.Count != 1 {
		t.Fatalf("extra=%+v", last)
	}
}

func TestParseFallbackPolicy(t *testing.T) {
	if p, err := ParseFallbackPolicy(""); err != nil || p != FallbackRetain {
		t.Fatalf("default=%q err=%v", p, err)
	}
	if p, err := ParseFallbackPolicy(" SEED "); err != nil || p != FallbackSeed {
		t.Fatalf("seed=%q err=%v", p, err)
	}
	if _, err := ParseFallbackPolicy("stale"); err == nil {
		t.Fatalf("unknown policy must fail")
	}
}

type rowsFunc func(ctx context.Context, sheetID string) ([][]string, error)

func (f rowsFunc) FetchRows(ctx context.Context, sheetID string) ([][]string, error) {
	return f(ctx, sheetID)
}

func TestSheetSource_DecodesProducts(t *testing.T) {
	rows := [][]string{
		{"id", "name", "price", "category", "description", "features", "dimensions", "material", "images", "inStock", "rating", "reviews", "originalPrice"},
		{"1", "Rustic Oak Table", "₹899", "Dining Tables", "Oak", "Solid oak|Seats 6", "", "", "", "yes", "4.8", "124", "1,099"},
		{"2", "No Price", "N/A", "sofas", "", "", "", "", ""},
		{"", "Blank Id", "100", "sofas", "", "", "", "", ""},
		{"3", "Short", "100"},
		{"4", "Zero", "0", "sofas", "", "", "", "", ""},
		{"5", "Bench", "449", "dining chairs", "", "", "90cm", "Teak", "a.jpg | b.jpg", "No", "", ""},
	}

	var gotSheet string
	src := &SheetSource{
		Rows: rowsFunc(func(_ context.Context, id string) ([][]string, error) {
			gotSheet = id
			return rows, nil
		}),
		Parser:  sheets.NewParser(zap.NewNop(), nil),
		SheetID: "products-sheet",
	}

	got, err := src.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts: %v", err)
	}
	if gotSheet != "products-sheet" {
		t.Fatalf("sheet=%q", gotSheet)
	}
	if len(got) != 2 {
		t.Fatalf("got %d products: %+v", len(got), got)
	}

	p := got[0]
	if p.ID != "1" || p.Category != "dining-tables" || !p.Price.Equal(decimal.NewFromInt(899)) {
		t.Fatalf("p1=%+v", p)
	}
	if p.OriginalPrice == nil || !p.OriginalPrice.Equal(decimal.NewFromInt(1099)) {
		t.Fatalf("originalPrice=%v", p.OriginalPrice)
	}
	if p.Dimensions != DefaultDimensions || p.Material != DefaultMaterial || len(p.Images) != 1 || p.Images[0] != DefaultImage {
		t.Fatalf("defaults not applied: %+v", p)
	}
	if !p.InStock || p.Rating != 4.8 || p.Reviews != 124 || len(p.Features) != 2 {
		t.Fatalf("p1=%+v", p)
	}

	b := got[1]
	if b.ID != "5" || b.InStock || b.Rating != DefaultRating || b.Reviews != 0 || b.Material != "Teak" {
		t.Fatalf("p5=%+v", b)
	}
	if len(b.Images) != 2 || b.Images[1] != "b.jpg" || b.Category != "dining-chairs" {
		t.Fatalf("p5=%+v", b)
	}
}

func TestSheetSource_HeaderOnlyIsAnError(t *testing.T) {
	src := &SheetSource{Rows: rowsFunc(func(context.Context, string) ([][]string, error) {
		return [][]string{{"id"}}, nil
	})}
	if _, err := src.FetchProducts(context.Background()); !errors.Is(err, ErrNoProducts) {
		t.Fatalf("err=%v", err)
	}
}

func TestDisplayName(t *testing.T) {
	for slug, want := range map[string]string{
		"outdoor-swings": "Outdoor Swings",
		"éclairage":      "Éclairage",
		"über-sofas":     "Über Sofas",
		"beds":           "Beds",
	} {
		if got := displayName(slug); got != want {
			t.Fatalf("displayName(%q)=%q want %q", slug, got, want)
		}
	}
}
