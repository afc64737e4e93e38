package cart

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"FurniStore/internal/catalog"
	"FurniStore/internal/session"
	"FurniStore/pkg/kit"
)

const (
	wsPingEvery  = 30 * time.Second
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 2 * wsPingEvery
	wsQueueDepth = 8
)

// ProductLookup resolves in-stock products by id.
type ProductLookup interface {
	GetByID(ctx context.Context, id string) (catalog.Product, bool, error)
}

type Server struct {
	Carts   *Registry
	Catalog ProductLookup
	Log     *zap.Logger
	// Upgrader is used for /ws. The zero value only accepts same-origin
	// handshakes.
	Upgrader websocket.Upgrader
}

type addReq struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type updateReq struct {
	Quantity int `json:"quantity"`
}

type quantityResp struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Routes is mounted under /cart behind session.Require.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.snapshot)
	r.Delete("/", s.clear)
	r.Post("/items", s.add)
	r.Get("/items/{id}", s.quantity)
	r.Put("/items/{id}", s.update)
	r.Delete("/items/{id}", s.remove)
	r.Get("/ws", s.stream)

	return r
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	sid, ok := session.IDFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusUnauthorized, "no session", nil)
		return nil, false
	}
	st, err := s.Carts.Get(r.Context(), sid)
	if err != nil {
		s.logError("cart restore failed", err, zap.String("session", sid))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "cart unavailable", nil)
		return nil, false
	}
	return st, true
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	kit.WriteJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	var req addReq
	if err := kit.DecodeJSON(w, r, &req, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if req.ProductID == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "productId required", nil)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	p, found, err := s.Catalog.GetByID(r.Context(), req.ProductID)
	if err != nil {
		s.logError("catalog lookup failed", err, zap.String("product_id", req.ProductID))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "product not available", map[string]any{"productId": req.ProductID})
		return
	}

	s.respond(w, r, st, st.AddToCart(r.Context(), p, qty))
}

func (s *Server) quantity(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	kit.WriteJSON(w, http.StatusOK, quantityResp{ProductID: id, Quantity: st.GetProductQuantity(id)})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	var req updateReq
	if err := kit.DecodeJSON(w, r, &req, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	s.respond(w, r, st, st.UpdateQuantity(r.Context(), chi.URLParam(r, "id"), req.Quantity))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	s.respond(w, r, st, st.RemoveFromCart(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}
	s.respond(w, r, st, st.ClearCart(r.Context()))
}

// respond writes the cart after a mutation. A persist failure still leaves
// the change applied, so the caller gets the new state.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, st *Store, err error) {
	switch {
	case err == nil, errors.Is(err, ErrPersist):
		kit.WriteJSON(w, http.StatusOK, st.Snapshot())
	case errors.Is(err, ErrInvalidQuantity):
		kit.WriteError(w, r, http.StatusBadRequest, "quantity must be between 1 and 999", map[string]any{"max": MaxQuantity})
	case errors.Is(err, ErrNotInCart):
		kit.WriteError(w, r, http.StatusNotFound, "not in cart", map[string]any{"productId": chi.URLParam(r, "id")})
	default:
		s.logError("cart mutation failed", err)
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

// stream pushes every cart snapshot to a websocket until the peer goes away.
// Slow peers lose intermediate snapshots, never the latest one.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	st, ok := s.store(w, r)
	if !ok {
		return
	}

	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logError("websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	updates := make(chan State, wsQueueDepth)
	unsubscribe := st.Subscribe(func(cs State) {
		for {
			select {
			case updates <- cs:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case cs := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(cs); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) logError(msg string, err error, fields ...zap.Field) {
	if s.Log != nil {
		s.Log.Error(msg, append(fields, zap.Error(err))...)
	}
}
