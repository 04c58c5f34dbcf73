package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/toko-storefront/internal/db"
	"github.com/noah-isme/toko-storefront/internal/money"
)

const configColumns = `standard_shipping_cost, free_shipping_threshold, express_shipping_cost,
	tax_rate, free_shipping_enabled, express_shipping_enabled, updated_at`

// PGStore keeps the config in the single-row shipping_config table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// GetOrCreate inserts defaults if the row is missing; concurrent first reads converge on one row.
func (s *PGStore) GetOrCreate(ctx context.Context, defaults Config) (Config, error) {
	if err := insertDefaults(ctx, s.Pool, defaults); err != nil {
		return Config{}, err
	}
	return scanConfig(s.Pool.QueryRow(ctx, `SELECT `+configColumns+` FROM shipping_config WHERE id`))
}

// Update applies fn to the locked row inside a transaction.
func (s *PGStore) Update(ctx context.Context, defaults Config, fn func(Config) Config) (Config, error) {
	var out Config
	err := db.InTx(ctx, s.Pool, func(tx pgx.Tx) error {
		if err := insertDefaults(ctx, tx, defaults); err != nil {
			return err
		}
		current, err := scanConfig(tx.QueryRow(ctx, `SELECT `+configColumns+` FROM shipping_config WHERE id FOR UPDATE`))
		if err != nil {
			return err
		}
		next := fn(current)
		out, err = scanConfig(tx.QueryRow(ctx, `
			UPDATE shipping_config SET
				standard_shipping_cost = $1,
				free_shipping_threshold = $2,
				express_shipping_cost = $3,
				tax_rate = $4,
				free_shipping_enabled = $5,
				express_shipping_enabled = $6,
				updated_at = now()
			WHERE id
			RETURNING `+configColumns,
			int64(next.StandardShippingCost), int64(next.FreeShippingThreshold), int64(next.ExpressShippingCost),
			next.TaxRate, next.FreeShippingEnabled, next.ExpressShippingEnabled))
		return err
	})
	if err != nil {
		return Config{}, err
	}
	return out, nil
}

func insertDefaults(ctx context.Context, q db.DBTX, d Config) error {
	_, err := q.Exec(ctx, `
		INSERT INTO shipping_config (id, standard_shipping_cost, free_shipping_threshold, express_shipping_cost,
			tax_rate, free_shipping_enabled, express_shipping_enabled)
		VALUES (true, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		int64(d.StandardShippingCost), int64(d.FreeShippingThreshold), int64(d.ExpressShippingCost),
		d.TaxRate, d.FreeShippingEnabled, d.ExpressShippingEnabled)
	if err != nil {
		return fmt.Errorf("insert default shipping config: %w", err)
	}
	return nil
}

func scanConfig(row pgx.Row) (Config, error) {
	var (
		cfg                          Config
		standard, threshold, express int64
	)
	err := row.Scan(&standard, &threshold, &express, &cfg.TaxRate,
		&cfg.FreeShippingEnabled, &cfg.ExpressShippingEnabled, &cfg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Config{}, errors.New("shipping config row missing")
		}
		return Config{}, err
	}
	cfg.StandardShippingCost = money.Amount(standard)
	cfg.FreeShippingThreshold = money.Amount(threshold)
	cfg.ExpressShippingCost = money.Amount(express)
	return cfg, nil
}
