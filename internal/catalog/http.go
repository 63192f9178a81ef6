package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"FoodMart/internal/store"
	"FoodMart/pkg/kit"
)

type Server struct {
	Log          *zap.Logger
	Store        store.ProductStore
	RequireAdmin func(http.Handler) http.Handler
	MaxBodyBytes int64
}

func (s *Server) Register(r chi.Router) {
	r.Get("/categories", s.categories)

	r.Route("/products", func(rr chi.Router) {
		rr.Get("/", s.list)
		rr.Get("/{id}", s.get)

		rr.Group(func(ar chi.Router) {
			ar.Use(s.RequireAdmin)
			ar.Post("/", s.create)
			ar.Put("/{id}", s.update)
			ar.Delete("/{id}", s.delete)
		})
	})
}

type productReq struct {
	ID          *int64 `json:"id"`
	Name        string `json:"name" validate:"required,max=200"`
	Category    string `json:"category" validate:"required,oneof=vegetables meat dairy eggs dry"`
	Price       *int64 `json:"price" validate:"required,gte=0"`
	Weight      string `json:"weight" validate:"required,max=50"`
	Rating      string `json:"rating" validate:"omitempty,product_rating"`
	Tag         string `json:"tag" validate:"product_tag"`
	Description string `json:"description" validate:"max=2000"`
	Image       string `json:"image" validate:"required,url"`
}

// productPatchReq accepts an id in the body for client convenience; the path
// id always wins.
type productPatchReq struct {
	ID          *int64  `json:"id"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Category    *string `json:"category" validate:"omitempty,oneof=vegetables meat dairy eggs dry"`
	Price       *int64  `json:"price" validate:"omitempty,gte=0"`
	Weight      *string `json:"weight" validate:"omitempty,min=1,max=50"`
	Rating      *string `json:"rating" validate:"omitempty,product_rating"`
	Tag         *string `json:"tag" validate:"omitempty,product_tag"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Image       *string `json:"image" validate:"omitempty,url"`
}

func (req productReq) input() store.ProductInput {
	return store.ProductInput{
		Name:        strings.TrimSpace(req.Name),
		Category:    req.Category,
		Price:       *req.Price,
		Weight:      req.Weight,
		Rating:      req.Rating,
		Tag:         req.Tag,
		Description: req.Description,
		Image:       req.Image,
	}
}

func (req productPatchReq) patch() store.ProductPatch {
	return store.ProductPatch{
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		Weight:      req.Weight,
		Rating:      req.Rating,
		Tag:         req.Tag,
		Description: req.Description,
		Image:       req.Image,
	}
}

func (s *Server) categories(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, Categories)
}

// list narrows by category first and then by search text when both are
// given. "all" or an empty category means no category filter.
func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	search, hasSearch := r.URL.Query()["search"]

	var (
		products []store.Product
		err      error
	)
	switch {
	case category != "" && category != allCategories:
		products, err = s.Store.ListByCategory(r.Context(), category)
		if err == nil && hasSearch {
			products = store.FilterByQuery(products, search[0])
		}
	case hasSearch:
		products, err = s.Store.Search(r.Context(), search[0])
	default:
		products, err = s.Store.ListProducts(r.Context())
	}
	if err != nil {
		s.Log.Error("list products failed", zap.Error(err), zap.String("category", category))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := kit.PathID(r, "id")
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return
	}

	p, found, err := s.Store.GetProduct(r.Context(), id)
	if err != nil {
		s.Log.Error("get product failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req productReq
	if err := kit.DecodeJSON(w, r, s.maxBody(), &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", kit.ValidationDetails(err))
		return
	}

	p, err := s.Store.CreateProduct(r.Context(), req.input())
	if err != nil {
		s.Log.Error("create product failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Log.Info("product created", zap.Int64("id", p.ID), zap.String("category", p.Category))
	kit.WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := kit.PathID(r, "id")
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return
	}

	var req productPatchReq
	if err := kit.DecodeJSON(w, r, s.maxBody(), &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}
	if err := validate.Struct(req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", kit.ValidationDetails(err))
		return
	}

	p, found, err := s.Store.UpdateProduct(r.Context(), id, req.patch())
	if err != nil {
		s.Log.Error("update product failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !found {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := kit.PathID(r, "id")
	if !ok {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return
	}

	removed, err := s.Store.DeleteProduct(r.Context(), id)
	if err != nil {
		s.Log.Error("delete product failed", zap.Error(err), zap.Int64("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !removed {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	s.Log.Info("product deleted", zap.Int64("id", id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) maxBody() int64 {
	if s.MaxBodyBytes <= 0 {
		return 1 << 20
	}
	return s.MaxBodyBytes
}
