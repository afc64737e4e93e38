package catalog

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FurniStore/pkg/kit"
)

const refreshTimeout = 30 * time.Second

type Server struct {
	Store *Store
	Log   *zap.Logger
	// AdminToken protects the forced refresh endpoint.
	AdminToken string
}

type listResp struct {
	Browse
	Count    int       `json:"count"`
	Products []Product `json:"products"`
}

// Routes is mounted under /catalog.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)
	r.Get("/categories", s.categories)
	r.With(kit.MetricsAuth(s.AdminToken)).Post("/refresh", s.refresh)

	return r
}

// list applies ?category= then ?q=; a search always wins and reports the
// category as "all".
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	b := NewBrowse()
	if c := r.URL.Query().Get("category"); c != "" {
		b = b.WithCategory(c)
	}
	if q := r.URL.Query().Get("q"); q != "" {
		b = b.WithQuery(q)
	}

	products, err := s.Store.Browse(r.Context(), b)
	if err != nil {
		s.writeStoreError(w, r, "list products failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, listResp{Browse: b, Count: len(products), Products: products})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok, err := s.Store.GetByID(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, "get product failed", err, zap.String("id", id))
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Store.Categories(r.Context())
	if err != nil {
		s.writeStoreError(w, r, "list categories failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, cats)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	if err := s.Store.Refresh(ctx); err != nil {
		s.writeStoreError(w, r, "forced refresh failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"fetched_at": s.Store.FetchedAt()})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	case errors.Is(err, ErrUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
	default:
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}
