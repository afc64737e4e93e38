package checkout

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FurniStore/internal/cart"
	"FurniStore/internal/session"
	"FurniStore/pkg/kit"
)

type Server struct {
	Checkout *Service
	Carts    *cart.Registry
	Limiter  *kit.IPRateLimiter
	Log      *zap.Logger

	// paying holds the sessions with a payment in flight.
	paying sync.Map
}

// Routes is mounted under /checkout behind session.Require.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", s.pay)
	r.Get("/receipts/{id}", s.receipt)
	return r
}

// CustomOrderRoutes is mounted under /custom-orders. It needs no session.
func (s *Server) CustomOrderRoutes() http.Handler {
	r := chi.NewRouter()
	if s.Limiter != nil {
		r.With(s.Limiter.Middleware).Post("/", s.submitCustom)
	} else {
		r.Post("/", s.submitCustom)
	}
	r.Get("/{id}", s.getCustom)
	return r
}

func (s *Server) pay(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.IDFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return
	}

	var d Details
	if err := kit.DecodeJSON(w, r, &d, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	if _, busy := s.paying.LoadOrStore(sid, struct{}{}); busy {
		kit.WriteError(w, r, http.StatusConflict, "payment already in progress", nil)
		return
	}
	defer s.paying.Delete(sid)

	c, err := s.Carts.Get(r.Context(), sid)
	if err != nil {
		s.logError("cart restore failed", err, zap.String("session", sid))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "cart unavailable", nil)
		return
	}

	rc, err := s.Checkout.Pay(r.Context(), sid, c.Snapshot(), d)
	if err != nil {
		s.writeError(w, r, "payment failed", err)
		return
	}

	// Only what was paid for leaves the cart. The receipt is the record of
	// the purchase; a cart that fails to persist is not a reason to fail it.
	if err := c.RemovePaid(context.WithoutCancel(r.Context()), rc.Items); err != nil {
		s.logError("cart update after payment failed", err, zap.String("receipt_id", rc.ID))
	}

	kit.WriteJSON(w, http.StatusCreated, rc)
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	sid, ok := session.IDFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return
	}

	id := chi.URLParam(r, "id")
	rc, found, err := s.Checkout.Receipt(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "get receipt failed", err)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	if rc.SessionID != sid {
		kit.WriteError(w, r, http.StatusForbidden, "forbidden", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, rc)
}

func (s *Server) submitCustom(w http.ResponseWriter, r *http.Request) {
	var req CustomOrderReq
	if err := kit.DecodeJSON(w, r, &req, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	o, err := s.Checkout.SubmitCustomOrder(r.Context(), req)
	if err != nil {
		s.writeError(w, r, "custom order failed", err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, o)
}

func (s *Server) getCustom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, found, err := s.Checkout.CustomOrder(r.Context(), id)
	if err != nil {
		s.writeError(w, r, "get custom order failed", err)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid fields", map[string]any{"fields": verr.Fields})
	case errors.Is(err, ErrEmptyCart):
		kit.WriteError(w, r, http.StatusBadRequest, "cart is empty", nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.logError(msg, err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
}
