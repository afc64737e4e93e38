package cart

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const DefaultIdleTTL = 30 * time.Minute

type entry struct {
	store    *Store
	lastUsed time.Time
}

// Registry owns one Store per shopper session. A session's cart is restored
// from the persister the first time it is asked for and dropped again once
// it has been idle for IdleTTL.
type Registry struct {
	persist Persister
	log     *zap.Logger
	// IdleTTL and Now are read by Sweep. Set them before the first Get.
	IdleTTL time.Duration
	Now     func() time.Time

	mutations *prometheus.CounterVec
	open      prometheus.Gauge

	loads singleflight.Group

	mu     sync.Mutex
	stores map[string]*entry
}

func NewRegistry(p Persister, log *zap.Logger, reg prometheus.Registerer) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{
		persist: p,
		log:     log,
		IdleTTL: DefaultIdleTTL,
		Now:     time.Now,
		stores:  map[string]*entry{},
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutations by operation",
		}, []string{"op"}),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cart_sessions_open",
			Help: "Carts held in memory",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.mutations, r.open)
	}
	return r
}

// Get returns the session's Store. Concurrent first calls for one session
// share a single restore, and restores for different sessions run in
// parallel.
func (r *Registry) Get(ctx context.Context, session string) (*Store, error) {
	if s, ok := r.lookup(session); ok {
		return s, nil
	}

	v, err, _ := r.loads.Do(session, func() (any, error) {
		if s, ok := r.lookup(session); ok {
			return s, nil
		}

		s, err := Open(ctx, Key(session), r.persist, r.log.With(zap.String("session", session)))
		if err != nil {
			return nil, err
		}
		s.observe = func(op string) { r.mutations.WithLabelValues(op).Inc() }

		r.mu.Lock()
		defer r.mu.Unlock()
		r.stores[session] = &entry{store: s, lastUsed: r.Now()}
		r.open.Set(float64(len(r.stores)))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) lookup(session string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.stores[session]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.Now()
	return e.store, true
}

// Sweep drops carts idle for IdleTTL that have no listeners and nothing left
// to persist. It returns how many were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.Now().Add(-r.IdleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for session, e := range r.stores {
		if e.lastUsed.After(cutoff) || !e.store.evictable() {
			continue
		}
		delete(r.stores, session)
		n++
	}
	r.open.Set(float64(len(r.stores)))
	if n > 0 {
		r.log.Debug("idle carts evicted", zap.Int("evicted", n), zap.Int("open", len(r.stores)))
	}
	return n
}

// Run sweeps every interval until ctx ends.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			r.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Forget drops the in-memory store for session; the persisted copy stays.
func (r *Registry) Forget(session string) {
	r.mu.Lock()
	delete(r.stores, session)
	r.open.Set(float64(len(r.stores)))
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}
