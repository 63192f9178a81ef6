package order

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const queryTimeout = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	id         TEXT        PRIMARY KEY,
	session_id TEXT        NOT NULL,
	total      BIGINT      NOT NULL,
	status     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_session_idx ON orders (session_id, created_at DESC);

CREATE TABLE IF NOT EXISTS order_items (
	order_id     TEXT    NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	product_id   BIGINT  NOT NULL,
	product_name TEXT    NOT NULL,
	quantity     INTEGER NOT NULL,
	price        BIGINT  NOT NULL,
	image        TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (order_id, position)
);
`

const orderColumns = `id, session_id, total, status, created_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "migrate order schema")
}

// Create writes the order and its lines in one transaction.
func (s *PostgresStore) Create(ctx context.Context, o Order) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "begin order tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, session_id, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, o.ID, o.SessionID, o.Total, string(o.Status), o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return errors.Wrap(err, "prepare order items")
	}
	defer stmt.Close()

	for i, it := range o.Items {
		if _, err := stmt.ExecContext(ctx, o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.Price, it.Image); err != nil {
			return errors.Wrapf(err, "insert order item %d", it.ProductID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit order")
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Order, bool, error) {
	orders, err := s.query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		return Order{}, false, err
	}
	if len(orders) == 0 {
		return Order{}, false, nil
	}
	return orders[0], true, nil
}

func (s *PostgresStore) ListBySession(ctx context.Context, sessionID string) ([]Order, error) {
	return s.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
	`, sessionID)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]Order, error) {
	return s.query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
	`)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) (Order, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return Order{}, false, errors.Wrapf(err, "update order %s", id)
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return Order{}, false, errors.Wrap(err, "update order rows")
	}
	return s.Get(ctx, id)
}

// query loads the matching orders and then their lines with a single
// follow-up query.
func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	out := make([]Order, 0)
	index := map[string]int{}
	for rows.Next() {
		var (
			o      Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.SessionID, &o.Total, &status, &o.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		o.Status = Status(status)
		o.Items = []Item{}
		index[o.ID] = len(out)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, quantity, price, image
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query order items")
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.Image); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		if i, ok := index[orderID]; ok {
			out[i].Items = append(out[i].Items, it)
		}
	}
	return out, errors.Wrap(itemRows.Err(), "iterate order items")
}
