package models

import (
	"errors"
	"fmt"
)

var (
	ErrDBNotInitialized = fmt.Errorf("database not initialized")

	ErrItemNotFound   = errors.New("item_not_found")
	ErrRecipeNotFound = errors.New("recipe_not_found")

	// ErrOutputQuantityMustBePositive is a fatal precondition violation in the
	// costing engine, never a silently guarded case.
	ErrOutputQuantityMustBePositive = errors.New("output_quantity_must_be_positive")
)

// Shortage is the deficit for one component: max(required - available, 0),
// integer base units only.
type Shortage struct {
	ItemID        int64 `json:"item_id"`
	RequiredBase  int64 `json:"required"`
	AvailableBase int64 `json:"available"`
}

// InsufficientStockError carries the full per-component shortage breakdown so
// callers can present exactly what is missing.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient_stock: %d component(s) short", len(e.Shortages))
}

// AsInsufficientStock unwraps err into an InsufficientStockError if it is one.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
