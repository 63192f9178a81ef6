package store

import (
	"context"
	"slices"
	"sync"
)

type cartKey struct {
	productID int64
	sessionID string
}

// MemStore keeps every table in process memory. One lock serializes writers
// so each operation applies as a whole.
type MemStore struct {
	mu sync.RWMutex

	products     map[int64]Product
	productOrder []int64
	nextProduct  int64

	cart      map[int64]CartItem
	cartOrder []int64
	cartIndex map[cartKey]int64
	nextCart  int64

	admins     map[int64]Admin
	adminOrder []int64
	nextAdmin  int64

	opts options
}

func NewMemStore(opts ...Option) *MemStore {
	return &MemStore{
		products:    map[int64]Product{},
		nextProduct: 1,
		cart:        map[int64]CartItem{},
		cartIndex:   map[cartKey]int64{},
		nextCart:    1,
		admins:      map[int64]Admin{},
		nextAdmin:   1,
		opts:        buildOptions(opts),
	}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectProducts(func(Product) bool { return true }), nil
}

func (s *MemStore) GetProduct(ctx context.Context, id int64) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	return p, ok, nil
}

func (s *MemStore) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *MemStore) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectProducts(func(p Product) bool { return p.Category == category }), nil
}

func (s *MemStore) Search(ctx context.Context, query string) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectProducts(func(p Product) bool { return MatchesQuery(p, query) }), nil
}

func (s *MemStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextProduct
	s.nextProduct++

	p := in.withDefaults().product(id)
	s.products[id] = p
	s.productOrder = append(s.productOrder, id)
	return p, nil
}

func (s *MemStore) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, false, nil
	}

	p = patch.Apply(p)
	s.products[id] = p
	return p, true, nil
}

// DeleteProduct leaves cart lines that reference id in place.
func (s *MemStore) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	s.productOrder = removeID(s.productOrder, id)
	return true, nil
}

func (s *MemStore) CartItems(ctx context.Context, sessionID string) ([]CartItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CartItem, 0)
	for _, id := range s.cartOrder {
		if it := s.cart[id]; it.SessionID == sessionID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *MemStore) AddToCart(ctx context.Context, productID int64, quantity int, sessionID string) (CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity > MaxQuantity {
		return CartItem{}, ErrQuantityLimit
	}

	key := cartKey{productID: productID, sessionID: sessionID}
	if id, ok := s.cartIndex[key]; ok {
		it := s.cart[id]
		if it.Quantity > MaxQuantity-quantity {
			return CartItem{}, ErrQuantityLimit
		}
		it.Quantity += quantity
		s.cart[id] = it
		return it, nil
	}

	id := s.nextCart
	s.nextCart++

	it := CartItem{ID: id, ProductID: productID, Quantity: quantity, SessionID: sessionID}
	s.cart[id] = it
	s.cartIndex[key] = id
	s.cartOrder = append(s.cartOrder, id)
	return it, nil
}

func (s *MemStore) UpdateCartItem(ctx context.Context, id int64, quantity int) (CartItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.cart[id]
	if !ok {
		return CartItem{}, false, nil
	}
	it.Quantity = quantity
	s.cart[id] = it
	return it, true, nil
}

func (s *MemStore) RemoveFromCart(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cart[id]; !ok {
		return false, nil
	}
	s.removeCartLine(id)
	return true, nil
}

func (s *MemStore) ClearCart(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doomed []int64
	for _, id := range s.cartOrder {
		if s.cart[id].SessionID == sessionID {
			doomed = append(doomed, id)
		}
	}
	for _, id := range doomed {
		s.removeCartLine(id)
	}
	return nil
}

func (s *MemStore) AdminByEmail(ctx context.Context, email string) (Admin, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.adminOrder {
		if a := s.admins[id]; a.Email == email {
			return a, true, nil
		}
	}
	return Admin{}, false, nil
}

// CreateAdmin does not look for an existing email; callers check with
// AdminByEmail first.
func (s *MemStore) CreateAdmin(ctx context.Context, email, password string) (Admin, error) {
	hash, err := hashPassword(password, s.opts.bcryptCost)
	if err != nil {
		return Admin{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextAdmin
	s.nextAdmin++

	a := Admin{ID: id, Email: email, PasswordHash: hash}
	s.admins[id] = a
	s.adminOrder = append(s.adminOrder, id)
	return a, nil
}

func (s *MemStore) collectProducts(keep func(Product) bool) []Product {
	out := make([]Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		if p := s.products[id]; keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemStore) removeCartLine(id int64) {
	it := s.cart[id]
	delete(s.cart, id)
	delete(s.cartIndex, cartKey{productID: it.ProductID, sessionID: it.SessionID})
	s.cartOrder = removeID(s.cartOrder, id)
}

func removeID(ids []int64, id int64) []int64 {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
