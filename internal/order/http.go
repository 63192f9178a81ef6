package order

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"FoodMart/internal/cart"
	"FoodMart/internal/store"
	"FoodMart/pkg/kit"
)

const EventCheckout = "checkout"

type Server struct {
	Log          *zap.Logger
	Store        Store
	Carts        store.CartStore
	Products     store.ProductStore
	Metrics      *kit.Metrics
	RequireAdmin func(http.Handler) http.Handler

	MaxBodyBytes int64
	Now          func() time.Time

	checkouts sessionLocks
}

func (s *Server) Register(r chi.Router) {
	r.Route("/orders", func(rr chi.Router) {
		rr.Post("/", s.checkout)
		rr.Get("/", s.listMine)
		rr.Get("/{id}", s.get)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(s.RequireAdmin)
		ar.Get("/admin/orders", s.listAll)
		ar.Patch("/admin/orders/{id}", s.updateStatus)
	})
}

type statusReq struct {
	Status Status `json:"status" validate:"required"`
}

var (
	errEmptyCart     = errors.New("cart is empty")
	errTotalOverflow = errors.New("total overflow")
)

// checkout turns the session's cart into a pending order and empties the
// cart. Lines whose product no longer exists are left out. Checkouts of one
// session run one at a time within this process, so a cart is ordered once.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := cart.SessionFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "no session", nil)
		return
	}

	unlock := s.checkouts.lock(sid)
	defer unlock()

	items, total, err := s.priceCart(r.Context(), sid)
	switch {
	case errors.Is(err, errEmptyCart):
		kit.WriteError(w, r, http.StatusBadRequest, "cart is empty", nil)
		return
	case errors.Is(err, errTotalOverflow):
		kit.WriteError(w, r, http.StatusBadRequest, "total overflow", nil)
		return
	case err != nil:
		s.Log.Error("price cart failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	o := Order{
		ID:        "o_" + uuid.NewString(),
		SessionID: sid,
		Items:     items,
		Total:     total,
		Status:    StatusPending,
		CreatedAt: s.now(),
	}

	if err := s.Store.Create(r.Context(), o); err != nil {
		if isTimeoutErr(err) {
			kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
			return
		}
		s.Log.Error("create order failed", zap.Error(err), zap.String("order_id", o.ID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	if err := s.Carts.ClearCart(r.Context(), sid); err != nil {
		s.Log.Warn("clear cart after checkout failed", zap.Error(err), zap.String("order_id", o.ID))
	}

	s.Metrics.Event(EventCheckout)
	s.Log.Info("order placed",
		zap.String("order_id", o.ID),
		zap.Int("lines", len(o.Items)),
		zap.Int64("total", o.Total),
	)
	kit.WriteJSON(w, http.StatusCreated, o)
}

func (s *Server) priceCart(ctx context.Context, sid string) ([]Item, int64, error) {
	lines, err := s.Carts.CartItems(ctx, sid)
	if err != nil {
		return nil, 0, err
	}
	if len(lines) == 0 {
		return nil, 0, errEmptyCart
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.Products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	items := make([]Item, 0, len(lines))
	var total int64
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}

		line := p.Price * int64(l.Quantity)
		if p.Price < 0 || l.Quantity <= 0 || (p.Price != 0 && line/p.Price != int64(l.Quantity)) {
			return nil, 0, errTotalOverflow
		}
		if total > math.MaxInt64-line {
			return nil, 0, errTotalOverflow
		}
		total += line

		items = append(items, Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			Price:       p.Price,
			Image:       p.Image,
		})
	}
	if len(items) == 0 {
		return nil, 0, errEmptyCart
	}
	return items, total, nil
}

func (s *Server) listMine(w http.ResponseWriter, r *http.Request) {
	sid, ok := cart.SessionFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "no session", nil)
		return
	}

	orders, err := s.Store.ListBySession(r.Context(), sid)
	if err != nil {
		s.Log.Error("list orders failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	sid, ok := cart.SessionFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "no session", nil)
		return
	}

	id := chi.URLParam(r, "id")
	o, found, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("store get order failed", zap.Error(err), zap.String("order_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	// Another session's order is reported as missing.
	if !found || o.SessionID != sid {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) listAll(w http.ResponseWriter, r *http.Request) {
	orders, err := s.Store.ListAll(r.Context())
	if err != nil {
		s.Log.Error("list all orders failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req statusReq
	if err := kit.DecodeJSON(w, r, s.maxBody(), &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if err := kit.Validate(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "status required", kit.ValidationDetails(err))
		return
	}
	if !req.Status.Valid() {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid status", map[string]any{"status": req.Status})
		return
	}

	o, found, err := s.Store.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		s.Log.Error("update order status failed", zap.Error(err), zap.String("order_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	s.Log.Info("order status changed", zap.String("order_id", id), zap.String("status", string(o.Status)))
	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Server) maxBody() int64 {
	if s.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return s.MaxBodyBytes
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
