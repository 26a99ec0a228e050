package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"drivelous-store/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxPerItem caps how many units of a single variant one customer may order.
const MaxPerItem = 15

// Reason explains why a requested quantity was adjusted.
type Reason string

const (
	ReasonLimitExceeded   Reason = "LIMIT_EXCEEDED"
	ReasonOutOfStock      Reason = "OUT_OF_STOCK"
	ReasonInvalidQuantity Reason = "INVALID_QUANTITY"
)

// Message returns the user-facing explanation for an adjustment.
func (r Reason) Message(item string) string {
	switch r {
	case ReasonLimitExceeded:
		return fmt.Sprintf("To prevent a single customer from cleaning the site out, every item is limited to a maximum of %d.", MaxPerItem)
	case ReasonOutOfStock:
		return fmt.Sprintf("Quantity for item %s exceeded stock available. Current cart quantity reflects maximum available.", item)
	case ReasonInvalidQuantity:
		return fmt.Sprintf("Cannot set %s quantity to 0. If you would like to remove the item, use the 'Remove' button next to it.", item)
	}
	return ""
}

// Clamp applies the quantity policy against a stock snapshot. Branches are
// exclusive, first match wins:
//  1. requested > MaxPerItem  -> MaxPerItem, LIMIT_EXCEEDED
//  2. requested > stock       -> stock, OUT_OF_STOCK
//  3. requested <= 0          -> 1, INVALID_QUANTITY
//
// Otherwise the requested quantity is accepted unchanged.
func Clamp(requested, stock int) (accepted int, adjusted bool, reason Reason) {
	switch {
	case requested > MaxPerItem:
		return MaxPerItem, true, ReasonLimitExceeded
	case requested > stock:
		return stock, true, ReasonOutOfStock
	case requested <= 0:
		return 1, true, ReasonInvalidQuantity
	}
	return requested, false, ""
}

// Ledger is the only legal path for reducing stock. Every decrement is a
// conditional update guarded by current availability, so two finalizes racing
// for the same variant cannot both decrement past zero.
type Ledger struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewLedger(pool *pgxpool.Pool, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Ledger{pool: pool, logger: logger}
}

// CommitCart decrements stock for every line of the cart and marks the cart
// inactive, all in one transaction. It fails with ErrInsufficientStock if any
// line's availability dropped below its quantity since the caller's stock
// confirmation, and with ErrAlreadyExists if the cart was already committed
// by a concurrent finalize. Either failure rolls back every decrement.
func (l *Ledger) CommitCart(ctx context.Context, cart *domain.Cart) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, line := range cart.Lines {
		if err := decrementVariant(ctx, tx, line.SKU, line.Size, line.Quantity); err != nil {
			l.logger.Printf("inventory: commit cart_id=%s sku=%s size=%q error=%v", cart.ID, line.SKU, line.Size, err)
			return err
		}
	}

	cmd, err := tx.Exec(ctx, `
UPDATE carts
SET state = 'inactive'
WHERE id = $1 AND state = 'active'
`, cart.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// A concurrent finalize already committed this cart.
		return domain.ErrAlreadyExists
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	cart.State = domain.CartStateInactive
	l.logger.Printf("inventory: committed cart_id=%s lines=%d", cart.ID, len(cart.Lines))
	return nil
}

// decrementVariant reduces a single variant's stock, refusing (not flooring)
// when availability is short, and deactivates the parent product once stock
// across all of its variants reaches zero.
func decrementVariant(ctx context.Context, tx pgx.Tx, sku, size string, qty int) error {
	cmd, err := tx.Exec(ctx, `
UPDATE product_variants v
SET stock = v.stock - $3
FROM products p
WHERE v.product_id = p.id AND p.sku = $1 AND v.size = $2 AND v.stock >= $3
`, sku, size, qty)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if exists, err := variantExists(ctx, tx, sku, size); err != nil {
			return err
		} else if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInsufficientStock
	}

	_, err = tx.Exec(ctx, `
UPDATE products p
SET active = FALSE
WHERE p.sku = $1
  AND NOT EXISTS (
	SELECT 1 FROM product_variants v
	WHERE v.product_id = p.id AND v.stock > 0
  )
`, sku)
	return err
}

func variantExists(ctx context.Context, tx pgx.Tx, sku, size string) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM product_variants v
	JOIN products p ON p.id = v.product_id
	WHERE p.sku = $1 AND v.size = $2
)
`, sku, size).Scan(&exists)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, err
	}
	return exists, nil
}
