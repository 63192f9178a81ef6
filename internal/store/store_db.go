package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"

	productColumns = `id, name, category, price, weight, rating, tag, description, image`
	cartColumns    = `id, product_id, quantity, session_id`
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT   NOT NULL,
	category    TEXT   NOT NULL,
	price       BIGINT NOT NULL,
	weight      TEXT   NOT NULL,
	rating      TEXT   NOT NULL DEFAULT '4.0',
	tag         TEXT   NOT NULL DEFAULT '',
	description TEXT   NOT NULL DEFAULT '',
	image       TEXT   NOT NULL
);
CREATE INDEX IF NOT EXISTS products_category_idx ON products (category);

CREATE TABLE IF NOT EXISTS cart_items (
	id         BIGSERIAL PRIMARY KEY,
	product_id BIGINT  NOT NULL,
	quantity   INTEGER NOT NULL DEFAULT 1,
	session_id TEXT    NOT NULL,
	UNIQUE (session_id, product_id)
);

CREATE TABLE IF NOT EXISTS admins (
	id        BIGSERIAL PRIMARY KEY,
	email     TEXT  NOT NULL UNIQUE,
	pass_hash BYTEA NOT NULL
);
`

// OpenPostgres opens a pgx-backed database/sql handle and checks it answers.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

type PostgresStore struct {
	db   *sql.DB
	opts options
}

func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	return &PostgresStore{db: db, opts: buildOptions(opts)}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, schema)
		return err
	})
	return errors.Wrap(err, "migrate store schema")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]Product, error) {
	return s.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY id ASC`)
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (Product, bool, error) {
	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
		return scanProduct(row, &p)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, errors.Wrapf(err, "get product %d", id)
	}
	return p, true, nil
}

func (s *PostgresStore) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	products, err := s.queryProducts(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (s *PostgresStore) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.queryProducts(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE category = $1
		ORDER BY id ASC
	`, category)
}

// Search fetches every product and filters in Go so matching uses the same
// case folding as the memory store.
func (s *PostgresStore) Search(ctx context.Context, query string) ([]Product, error) {
	all, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByQuery(all, query), nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	in = in.withDefaults()

	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO products (name, category, price, weight, rating, tag, description, image)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+productColumns,
			in.Name, in.Category, in.Price, in.Weight, in.Rating, in.Tag, in.Description, in.Image)
		return scanProduct(row, &p)
	})
	if err != nil {
		return Product{}, errors.Wrap(err, "insert product")
	}
	return p, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (Product, bool, error) {
	var p Product
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE products SET
				name        = COALESCE($2::text, name),
				category    = COALESCE($3::text, category),
				price       = COALESCE($4::bigint, price),
				weight      = COALESCE($5::text, weight),
				rating      = COALESCE($6::text, rating),
				tag         = COALESCE($7::text, tag),
				description = COALESCE($8::text, description),
				image       = COALESCE($9::text, image)
			WHERE id = $1
			RETURNING `+productColumns,
			id, patch.Name, patch.Category, patch.Price, patch.Weight,
			patch.Rating, patch.Tag, patch.Description, patch.Image)
		return scanProduct(row, &p)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, errors.Wrapf(err, "update product %d", id)
	}
	return p, true, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	n, err := s.exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrapf(err, "delete product %d", id)
	}
	return n > 0, nil
}

func (s *PostgresStore) CartItems(ctx context.Context, sessionID string) ([]CartItem, error) {
	out := make([]CartItem, 0)
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+cartColumns+`
			FROM cart_items
			WHERE session_id = $1
			ORDER BY id ASC
		`, sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var it CartItem
			if err := scanCartItem(rows, &it); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}
	return out, nil
}

// AddToCart skips the conflict update when the merged quantity would pass
// MaxQuantity; no row comes back and the call reports ErrQuantityLimit.
func (s *PostgresStore) AddToCart(ctx context.Context, productID int64, quantity int, sessionID string) (CartItem, error) {
	if quantity > MaxQuantity {
		return CartItem{}, ErrQuantityLimit
	}

	var it CartItem
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO cart_items (product_id, quantity, session_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (session_id, product_id) DO UPDATE
			SET quantity = cart_items.quantity + EXCLUDED.quantity
			WHERE cart_items.quantity + EXCLUDED.quantity <= $4
			RETURNING `+cartColumns,
			productID, quantity, sessionID, MaxQuantity)
		return scanCartItem(row, &it)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return CartItem{}, ErrQuantityLimit
	}
	if err != nil {
		return CartItem{}, errors.Wrap(err, "add to cart")
	}
	return it, nil
}

func (s *PostgresStore) UpdateCartItem(ctx context.Context, id int64, quantity int) (CartItem, bool, error) {
	var it CartItem
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE cart_items SET quantity = $2
			WHERE id = $1
			RETURNING `+cartColumns,
			id, quantity)
		return scanCartItem(row, &it)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return CartItem{}, false, nil
	}
	if err != nil {
		return CartItem{}, false, errors.Wrapf(err, "update cart item %d", id)
	}
	return it, true, nil
}

func (s *PostgresStore) RemoveFromCart(ctx context.Context, id int64) (bool, error) {
	n, err := s.exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrapf(err, "remove cart item %d", id)
	}
	return n > 0, nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, sessionID string) error {
	_, err := s.exec(ctx, `DELETE FROM cart_items WHERE session_id = $1`, sessionID)
	return errors.Wrap(err, "clear cart")
}

func (s *PostgresStore) AdminByEmail(ctx context.Context, email string) (Admin, bool, error) {
	var a Admin
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, email, pass_hash
			FROM admins
			WHERE email = $1
		`, email).Scan(&a.ID, &a.Email, &a.PasswordHash)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, false, nil
	}
	if err != nil {
		return Admin{}, false, errors.Wrap(err, "get admin")
	}
	return a, true, nil
}

// CreateAdmin reports ErrAdminExists when the email column's unique
// constraint rejects the row.
func (s *PostgresStore) CreateAdmin(ctx context.Context, email, password string) (Admin, error) {
	hash, err := hashPassword(password, s.opts.bcryptCost)
	if err != nil {
		return Admin{}, err
	}

	a := Admin{Email: email, PasswordHash: hash}
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO admins (email, pass_hash)
			VALUES ($1, $2)
			RETURNING id
		`, email, hash).Scan(&a.ID)
	})
	if isUniqueViolation(err) {
		return Admin{}, ErrAdminExists
	}
	if err != nil {
		return Admin{}, errors.Wrap(err, "insert admin")
	}
	return a, nil
}

func (s *PostgresStore) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	out := make([]Product, 0, 16)
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p Product
			if err := scanProduct(rows, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	return out, nil
}

func (s *PostgresStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(sc scanner, p *Product) error {
	return sc.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Weight, &p.Rating, &p.Tag, &p.Description, &p.Image)
}

func scanCartItem(sc scanner, it *CartItem) error {
	return sc.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.SessionID)
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
