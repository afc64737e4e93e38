package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// DBPool matches the methods of *pgxpool.Pool the persister uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresPersister keeps each cart as one JSONB row.
type PostgresPersister struct {
	pool DBPool
}

func NewPostgresPersister(pool DBPool) *PostgresPersister {
	return &PostgresPersister{pool: pool}
}

func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := p.pool.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS carts (
				key        TEXT PRIMARY KEY,
				state      JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)
		`)
		return err
	})
}

func (p *PostgresPersister) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, p.pool.Ping)
}

func (p *PostgresPersister) Load(ctx context.Context, key string) (State, bool, error) {
	var raw []byte
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return p.pool.QueryRow(ctx, `
			SELECT state
			FROM carts
			WHERE key = $1
		`, key).Scan(&raw)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}

	st, err := decodeState(raw)
	return st, err == nil, err
}

func (p *PostgresPersister) Save(ctx context.Context, key string, st State) error {
	raw, err := encodeState(st)
	if err != nil {
		return err
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := p.pool.Exec(ctx, `
			INSERT INTO carts (key, state, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE
			SET state = EXCLUDED.state, updated_at = now()
		`, key, raw)
		return err
	})
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
