package orders

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FurniStore/pkg/kit"
)

type Server struct {
	Orders  *Service
	Limiter *kit.IPRateLimiter
	Log     *zap.Logger
}

type orderView struct {
	Order
	Step     int `json:"step"`
	Progress int `json:"progress"`
}

type lookupResp struct {
	Count  int         `json:"count"`
	Orders []orderView `json:"orders"`
	Stages []Stage     `json:"stages"`
}

// Routes is mounted under /orders.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	if s.Limiter != nil {
		r.Use(s.Limiter.Middleware)
	}
	r.Get("/", s.lookup)
	return r
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	found, err := s.Orders.Lookup(r.Context(), r.URL.Query().Get("mobile"))
	switch {
	case err == nil:
	case errors.Is(err, ErrMobileRequired), errors.Is(err, ErrInvalidMobile):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
		return
	default:
		if s.Log != nil {
			s.Log.Error("order lookup failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "order sheet unavailable", nil)
		return
	}

	views := make([]orderView, 0, len(found))
	for _, o := range found {
		views = append(views, orderView{Order: o, Step: o.Status.Step(), Progress: o.Status.Progress()})
	}
	kit.WriteJSON(w, http.StatusOK, lookupResp{Count: len(views), Orders: views, Stages: Stages()})
}
