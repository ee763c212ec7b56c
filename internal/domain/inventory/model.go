package inventory

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// CustomSKU marks a work-order line that is not a catalogue product. Such lines never
// touch stock.
const CustomSKU = "CUSTOM"

// Adjustment is the before/after pair of one stock write.
type Adjustment struct {
	SKU    string
	Before int64
	After  int64
}

func (a Adjustment) Direction() Direction {
	if a.After < a.Before {
		return DirectionOut
	}
	return DirectionIn
}

var (
	ErrProductNotFound  = errors.New("inventory: product not found")
	ErrInvalidStockMath = errors.New("inventory: invalid stock arithmetic")
)

// InsufficientStockError is returned when a debit would take stock below zero.
type InsufficientStockError struct {
	SKU       string
	Current   int64
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s: have %d, need %s", e.SKU, e.Current, e.Requested)
}
