package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Store is the row-level access the adjuster needs. LockStock must hold an exclusive lock on
// the product row until the enclosing transaction ends.
type Store interface {
	LockStock(ctx context.Context, sku string) (int64, error)
	WriteStock(ctx context.Context, sku string, stock int64) error
}

// Tracked reports whether sku refers to a catalogue product whose stock is adjusted.
func Tracked(sku string) bool {
	return sku != "" && sku != CustomSKU
}

// Adjust applies delta (positive restocks, negative debits) to the product's stock.
// No audit row is written here; callers log at the work-order level.
func Adjust(ctx context.Context, s Store, sku string, delta decimal.Decimal) (Adjustment, error) {
	if !delta.IsInteger() {
		return Adjustment{}, fmt.Errorf("%w: delta %s for %s is not a whole number", ErrInvalidStockMath, delta, sku)
	}

	current, err := s.LockStock(ctx, sku)
	if err != nil {
		return Adjustment{}, err
	}

	next := decimal.NewFromInt(current).Add(delta)
	if delta.IsNegative() && next.IsNegative() {
		return Adjustment{}, &InsufficientStockError{SKU: sku, Current: current, Requested: delta.Neg()}
	}
	if !next.BigInt().IsInt64() {
		return Adjustment{}, fmt.Errorf("%w: %d + %s overflows for %s", ErrInvalidStockMath, current, delta, sku)
	}

	adj := Adjustment{SKU: sku, Before: current, After: next.IntPart()}
	if err := s.WriteStock(ctx, sku, adj.After); err != nil {
		return Adjustment{}, err
	}
	return adj, nil
}

func Debit(ctx context.Context, s Store, sku string, qty decimal.Decimal) (Adjustment, error) {
	if !qty.IsPositive() {
		return Adjustment{}, fmt.Errorf("%w: debit quantity %s must be > 0", ErrInvalidStockMath, qty)
	}
	return Adjust(ctx, s, sku, qty.Neg())
}

func Restock(ctx context.Context, s Store, sku string, qty decimal.Decimal) (Adjustment, error) {
	if !qty.IsPositive() {
		return Adjustment{}, fmt.Errorf("%w: restock quantity %s must be > 0", ErrInvalidStockMath, qty)
	}
	return Adjust(ctx, s, sku, qty)
}

// SetLevel brings stock to target (a stock-take), applying the difference through Adjust.
func SetLevel(ctx context.Context, s Store, sku string, target int64) (Adjustment, error) {
	if target < 0 {
		return Adjustment{}, fmt.Errorf("%w: target level %d for %s is negative", ErrInvalidStockMath, target, sku)
	}
	current, err := s.LockStock(ctx, sku)
	if err != nil {
		return Adjustment{}, err
	}
	if current == target {
		return Adjustment{SKU: sku, Before: current, After: current}, nil
	}
	return Adjust(ctx, s, sku, decimal.NewFromInt(target-current))
}
