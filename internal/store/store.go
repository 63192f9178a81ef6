// Package store holds the storefront's catalog, cart and admin state behind
// one contract. Lookups report absence through a boolean, never an error.
package store

import (
	"context"
	"errors"
)

const (
	DefaultRating = "4.0"

	// MaxQuantity caps a single cart line, merged quantities included.
	MaxQuantity = 100000
)

var (
	ErrAdminExists   = errors.New("admin email already exists")
	ErrQuantityLimit = errors.New("cart line quantity limit exceeded")
)

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Weight      string `json:"weight"`
	Rating      string `json:"rating"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ProductInput is a product without its id.
type ProductInput struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Price       int64  `json:"price"`
	Weight      string `json:"weight"`
	Rating      string `json:"rating"`
	Tag         string `json:"tag"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// ProductPatch carries a partial update. Nil fields keep their stored value.
type ProductPatch struct {
	Name        *string `json:"name,omitempty"`
	Category    *string `json:"category,omitempty"`
	Price       *int64  `json:"price,omitempty"`
	Weight      *string `json:"weight,omitempty"`
	Rating      *string `json:"rating,omitempty"`
	Tag         *string `json:"tag,omitempty"`
	Description *string `json:"description,omitempty"`
	Image       *string `json:"image,omitempty"`
}

type CartItem struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	SessionID string `json:"sessionId"`
}

type Admin struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash []byte `json:"-"`
}

type ProductStore interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, bool, error)
	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
}

type CartStore interface {
	CartItems(ctx context.Context, sessionID string) ([]CartItem, error)
	AddToCart(ctx context.Context, productID int64, quantity int, sessionID string) (CartItem, error)
	UpdateCartItem(ctx context.Context, id int64, quantity int) (CartItem, bool, error)
	RemoveFromCart(ctx context.Context, id int64) (bool, error)
	ClearCart(ctx context.Context, sessionID string) error
}

type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (Admin, bool, error)
	CreateAdmin(ctx context.Context, email, password string) (Admin, error)
}

type Store interface {
	ProductStore
	CartStore
	AdminStore
	Ping(ctx context.Context) error
}

func (in ProductInput) withDefaults() ProductInput {
	if in.Rating == "" {
		in.Rating = DefaultRating
	}
	return in
}

func (in ProductInput) product(id int64) Product {
	return Product{
		ID:          id,
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Weight:      in.Weight,
		Rating:      in.Rating,
		Tag:         in.Tag,
		Description: in.Description,
		Image:       in.Image,
	}
}

// Apply merges the supplied fields onto p. The id is never touched.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Weight != nil {
		p.Weight = *patch.Weight
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.Tag != nil {
		p.Tag = *patch.Tag
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	return p
}
