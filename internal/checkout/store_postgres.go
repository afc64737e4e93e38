package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"FurniStore/internal/cart"
)

const dbTimeout = 5 * time.Second

// DBPool matches the methods of *pgxpool.Pool the store uses.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresStore struct {
	db DBPool
}

func NewPostgresStore(db DBPool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS receipts (
			id           TEXT PRIMARY KEY,
			session_id   TEXT NOT NULL,
			email        TEXT NOT NULL,
			name         TEXT NOT NULL,
			address      TEXT NOT NULL,
			city         TEXT NOT NULL,
			zip_code     TEXT NOT NULL,
			card_last4   TEXT NOT NULL,
			item_count   INT NOT NULL,
			subtotal     NUMERIC NOT NULL,
			delivery_fee NUMERIC NOT NULL,
			total        NUMERIC NOT NULL,
			paid_at      TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS receipt_items (
			receipt_id TEXT NOT NULL REFERENCES receipts(id),
			line       INT NOT NULL,
			product    JSONB NOT NULL,
			quantity   INT NOT NULL,
			PRIMARY KEY (receipt_id, line)
		);
		CREATE TABLE IF NOT EXISTS custom_orders (
			id          TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			dimensions  TEXT NOT NULL,
			contact     TEXT NOT NULL,
			image_url   TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

func (s *PostgresStore) SaveReceipt(ctx context.Context, r Receipt) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO receipts (id, session_id, email, name, address, city, zip_code, card_last4,
			item_count, subtotal, delivery_fee, total, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.ID, r.SessionID, r.Email, r.Name, r.Address, r.City, r.ZipCode, r.CardLast4,
		r.ItemCount, r.Subtotal, r.DeliveryFee, r.Total, r.PaidAt)
	if err != nil {
		return err
	}

	for i, it := range r.Items {
		product, err := json.Marshal(it.Product)
		if err != nil {
			return fmt.Errorf("encode receipt line %d: %w", i, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO receipt_items (receipt_id, line, product, quantity)
			VALUES ($1, $2, $3, $4)
		`, r.ID, i, product, it.Quantity); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Receipt(ctx context.Context, id string) (Receipt, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var (
		r                    Receipt
		subtotal, fee, total string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, session_id, email, name, address, city, zip_code, card_last4,
			item_count, subtotal::text, delivery_fee::text, total::text, paid_at
		FROM receipts
		WHERE id = $1
	`, id).Scan(&r.ID, &r.SessionID, &r.Email, &r.Name, &r.Address, &r.City, &r.ZipCode, &r.CardLast4,
		&r.ItemCount, &subtotal, &fee, &total, &r.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receipt{}, false, nil
	}
	if err != nil {
		return Receipt{}, false, err
	}

	for _, f := range []struct {
		dst *decimal.Decimal
		raw string
	}{{&r.Subtotal, subtotal}, {&r.DeliveryFee, fee}, {&r.Total, total}} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return Receipt{}, false, fmt.Errorf("receipt %s amount: %w", id, err)
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT product, quantity
		FROM receipt_items
		WHERE receipt_id = $1
		ORDER BY line ASC
	`, id)
	if err != nil {
		return Receipt{}, false, err
	}
	defer rows.Close()

	items := make([]cart.Item, 0, r.ItemCount)
	for rows.Next() {
		var (
			raw []byte
			it  cart.Item
		)
		if err := rows.Scan(&raw, &it.Quantity); err != nil {
			return Receipt{}, false, err
		}
		if err := json.Unmarshal(raw, &it.Product); err != nil {
			return Receipt{}, false, fmt.Errorf("decode receipt line: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return Receipt{}, false, err
	}
	r.Items = items

	return r, true, nil
}

func (s *PostgresStore) SaveCustomOrder(ctx context.Context, o CustomOrder) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `
		INSERT INTO custom_orders (id, description, dimensions, contact, image_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.Description, o.Dimensions, o.Contact, o.ImageURL, o.Status, o.CreatedAt)
	return err
}

func (s *PostgresStore) CustomOrder(ctx context.Context, id string) (CustomOrder, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var o CustomOrder
	err := s.db.QueryRow(ctx, `
		SELECT id, description, dimensions, contact, image_url, status, created_at
		FROM custom_orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.Description, &o.Dimensions, &o.Contact, &o.ImageURL, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CustomOrder{}, false, nil
	}
	if err != nil {
		return CustomOrder{}, false, err
	}
	return o, true, nil
}
