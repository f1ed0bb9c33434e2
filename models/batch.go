package models

import (
	"time"

	"gorm.io/gorm"
)

// ItemBatch is one purchase/production/seed lot. QtyRemainingBase only ever
// decreases, and only through FIFO allocation debits. Exhausted batches
// (QtyRemainingBase = 0) are kept for audit; batches are never deleted.
// UnitCostCents is the cost per one human unit of the item's uom, fixed at
// creation and never recomputed.
type ItemBatch struct {
	ID               int64      `gorm:"primary_key" json:"id"`
	ItemID           int64      `gorm:"index:idx_item_batches_fifo,priority:1;not null" json:"item_id"`
	QtyInitialBase   int64      `gorm:"not null" json:"qty_initial_base"`
	QtyRemainingBase int64      `gorm:"not null" json:"qty_remaining_base"`
	UnitCostCents    int64      `gorm:"not null;default:0" json:"unit_cost_cents"`
	SourceKind       SourceKind `gorm:"size:20;not null" json:"source_kind"`
	SourceID         *string    `gorm:"size:64;index" json:"source_id"`
	CreatedAt        time.Time  `gorm:"index:idx_item_batches_fifo,priority:2;autoCreateTime" json:"created_at"`
}

// AddBatch inserts a new stock lot inside the caller's transaction and
// returns it. Quantity must already be a positive base-unit integer.
func AddBatch(tx *gorm.DB, itemID int64, qtyBase int64, unitCostCents int64, sourceKind SourceKind, sourceID *string) (*ItemBatch, error) {
	if qtyBase <= 0 {
		return nil, ErrInvalidQuantity
	}
	if unitCostCents < 0 {
		return nil, ErrInvalidUnitCost
	}
	batch := ItemBatch{
		ItemID:           itemID,
		QtyInitialBase:   qtyBase,
		QtyRemainingBase: qtyBase,
		UnitCostCents:    unitCostCents,
		SourceKind:       sourceKind,
		SourceID:         sourceID,
	}
	if err := tx.Create(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// OnHandQty sums non-exhausted batch remainders for an item, in base units.
func OnHandQty(tx *gorm.DB, itemID int64) (int64, error) {
	var total int64
	err := tx.Model(&ItemBatch{}).
		Where("item_id = ? AND qty_remaining_base > 0", itemID).
		Select("COALESCE(SUM(qty_remaining_base), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// OpenBatchesFifo returns an item's batches with stock remaining, in strict
// FIFO order. Ties on created_at break by id so the order is a stable total
// order across runs.
func OpenBatchesFifo(tx *gorm.DB, itemID int64) ([]*ItemBatch, error) {
	var batches []*ItemBatch
	err := tx.
		Where("item_id = ? AND qty_remaining_base > 0", itemID).
		Order("created_at ASC, id ASC").
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// RemainingBatches returns all batches with stock left, grouped by nothing:
// valuation math stays out of SQL because unit costs are cents per human
// unit while remainders are base units. The costing engine owns that
// conversion.
func RemainingBatches(tx *gorm.DB, itemID *int64) ([]*ItemBatch, error) {
	dbCtx := tx.Where("qty_remaining_base > 0")
	if itemID != nil {
		dbCtx = dbCtx.Where("item_id = ?", *itemID)
	}
	var batches []*ItemBatch
	if err := dbCtx.Order("item_id ASC, created_at ASC, id ASC").Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}
