package workflow

import (
	"fmt"

	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"gorm.io/gorm"
)

// Allocation is one slice of a FIFO plan: take QtyBase from BatchID at the
// batch's fixed per-human-unit cost.
type Allocation struct {
	ItemID        int64 `json:"item_id"`
	BatchID       int64 `json:"batch_id"`
	QtyBase       int64 `json:"qty_base"`
	UnitCostCents int64 `json:"unit_cost_cents"`
}

// PlanFifo walks an item's open batches oldest-first and produces an
// allocation plan summing exactly to requiredBase, or an
// InsufficientStockError. It performs no writes, so it is safe for dry-run
// shortage checks.
func PlanFifo(tx *gorm.DB, itemID int64, requiredBase int64) ([]Allocation, error) {
	if requiredBase <= 0 {
		return nil, nil
	}

	batches, err := models.OpenBatchesFifo(tx, itemID)
	if err != nil {
		return nil, err
	}

	var available int64
	for _, b := range batches {
		available += b.QtyRemainingBase
	}
	if available < requiredBase {
		return nil, &models.InsufficientStockError{
			Shortages: []models.Shortage{{
				ItemID:        itemID,
				RequiredBase:  requiredBase,
				AvailableBase: available,
			}},
		}
	}

	plan := make([]Allocation, 0, len(batches))
	stillNeeded := requiredBase
	for _, b := range batches {
		if stillNeeded <= 0 {
			break
		}
		take := b.QtyRemainingBase
		if take > stillNeeded {
			take = stillNeeded
		}
		plan = append(plan, Allocation{
			ItemID:        itemID,
			BatchID:       b.ID,
			QtyBase:       take,
			UnitCostCents: b.UnitCostCents,
		})
		stillNeeded -= take
	}
	return plan, nil
}

// AllocateFifo plans and applies the FIFO debits inside the caller's
// transaction. Each debit is a guarded decrement: if a concurrent consumer
// raced a batch to exhaustion after planning, the conditional update misses
// and the whole transaction must roll back rather than oversell.
func AllocateFifo(tx *gorm.DB, itemID int64, requiredBase int64) ([]Allocation, error) {
	plan, err := PlanFifo(tx, itemID, requiredBase)
	if err != nil {
		return nil, err
	}

	for _, alloc := range plan {
		res := tx.Model(&models.ItemBatch{}).
			Where("id = ? AND qty_remaining_base >= ?", alloc.BatchID, alloc.QtyBase).
			Update("qty_remaining_base", gorm.Expr("qty_remaining_base - ?", alloc.QtyBase))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != 1 {
			return nil, fmt.Errorf("batch %d raced to exhaustion during allocation: %w",
				alloc.BatchID,
				&models.InsufficientStockError{Shortages: []models.Shortage{{
					ItemID:       itemID,
					RequiredBase: requiredBase,
				}}})
		}
	}
	return plan, nil
}
