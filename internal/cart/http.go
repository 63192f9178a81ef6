package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FoodMart/internal/store"
	"FoodMart/pkg/kit"
)

const EventCartAdd = "cart_add"

type Server struct {
	Log      *zap.Logger
	Carts    store.CartStore
	Products store.ProductStore
	Metrics  *kit.Metrics

	MaxBodyBytes int64
}

// Register expects Sessions.Middleware to run in front of these routes.
func (s *Server) Register(r chi.Router) {
	r.Route("/cart", func(rr chi.Router) {
		rr.Get("/", s.list)
		rr.Post("/", s.add)
		rr.Delete("/", s.clear)
		rr.Put("/{id}", s.update)
		rr.Delete("/{id}", s.remove)
	})
}

type addReq struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  *int  `json:"quantity" validate:"omitempty,gte=1,lte=100000"`
}

// Tag bounds mirror store.MaxQuantity.
type updateReq struct {
	Quantity *int `json:"quantity" validate:"required,lte=100000"`
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.session(w, r)
	if !ok {
		return
	}

	items, err := s.Carts.CartItems(r.Context(), sid)
	if err != nil {
		s.Log.Error("cart items failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if items == nil {
		items = []store.CartItem{}
	}
	kit.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.session(w, r)
	if !ok {
		return
	}

	var req addReq
	if err := kit.DecodeJSON(w, r, s.maxBody(), &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if err := kit.Validate(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid cart item", kit.ValidationDetails(err))
		return
	}

	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	_, found, err := s.Products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		s.Log.Error("product lookup failed", zap.Error(err), zap.Int64("product_id", req.ProductID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "product not found", map[string]any{"productId": req.ProductID})
		return
	}

	it, err := s.Carts.AddToCart(r.Context(), req.ProductID, qty, sid)
	if errors.Is(err, store.ErrQuantityLimit) {
		kit.WriteError(w, r, http.StatusBadRequest, "quantity limit exceeded", map[string]any{"max": store.MaxQuantity})
		return
	}
	if err != nil {
		s.Log.Error("add to cart failed", zap.Error(err), zap.Int64("product_id", req.ProductID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Metrics.Event(EventCartAdd)
	kit.WriteJSON(w, http.StatusOK, it)
}

// update overwrites a line's quantity; zero or less removes the line.
func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := kit.PathID(r, "id")
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return
	}

	var req updateReq
	if err := kit.DecodeJSON(w, r, s.maxBody(), &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if err := kit.Validate(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "quantity required", kit.ValidationDetails(err))
		return
	}

	owned, err := s.owns(r.Context(), sid, id)
	if err != nil {
		s.Log.Error("cart ownership check failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !owned {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	if *req.Quantity <= 0 {
		s.removeOwned(w, r, id)
		return
	}

	it, found, err := s.Carts.UpdateCartItem(r.Context(), id, *req.Quantity)
	if err != nil {
		s.Log.Error("update cart item failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := kit.PathID(r, "id")
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return
	}

	owned, err := s.owns(r.Context(), sid, id)
	if err != nil {
		s.Log.Error("cart ownership check failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !owned {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	s.removeOwned(w, r, id)
}

func (s *Server) removeOwned(w http.ResponseWriter, r *http.Request, id int64) {
	removed, err := s.Carts.RemoveFromCart(r.Context(), id)
	if err != nil {
		s.Log.Error("remove cart item failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !removed {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	sid, ok := s.session(w, r)
	if !ok {
		return
	}

	if err := s.Carts.ClearCart(r.Context(), sid); err != nil {
		s.Log.Error("clear cart failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// owns reports whether line id belongs to the session's cart.
func (s *Server) owns(ctx context.Context, sid string, id int64) (bool, error) {
	items, err := s.Carts.CartItems(ctx, sid)
	if err != nil {
		return false, err
	}
	for _, it := range items {
		if it.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid, ok := SessionFromContext(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "no session", nil)
		return "", false
	}
	return sid, true
}

func (s *Server) maxBody() int64 {
	if s.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return s.MaxBodyBytes
}
