package workflow

import (
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Costing engine. unit_cost_cents is always cents per one human unit of the
// item's configured uom, never per base unit. Every computation converts a
// base quantity back to human units exactly once, keeps the value as an exact
// decimal, and rounds half-up to whole cents as the single final step.
// No float participates anywhere in cost math.

// RoundHalfUpCents rounds a non-negative exact decimal to whole cents.
// DivRound/RoundBank semantics differ; decimal.Round rounds half away from
// zero, which equals half-up for the non-negative values cost math produces.
func RoundHalfUpCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// LineCostCents prices a base-unit quantity against a batch's per-human-unit
// cost: unitCostCents * (qtyBase / multiplier), divided exactly once and
// rounded half-up.
func LineCostCents(unitCostCents int64, qtyBase int64, dimension models.Dimension, uom string) (int64, error) {
	mult, err := models.UomMultiplier(dimension, uom)
	if err != nil {
		return 0, err
	}
	cents := decimal.NewFromInt(unitCostCents).
		Mul(decimal.NewFromInt(qtyBase)).
		DivRound(decimal.NewFromInt(mult), 0)
	return cents.IntPart(), nil
}

// OutputUnitCostCents derives the per-human-unit cost of a manufactured
// output: totalInputCostCents / (outputQtyBase / multiplier). A zero or
// negative output quantity is a precondition violation, never guarded
// silently.
func OutputUnitCostCents(totalInputCostCents int64, outputQtyBase int64, dimension models.Dimension, uom string) (int64, error) {
	if outputQtyBase <= 0 {
		return 0, models.ErrOutputQuantityMustBePositive
	}
	mult, err := models.UomMultiplier(dimension, uom)
	if err != nil {
		return 0, err
	}
	cents := decimal.NewFromInt(totalInputCostCents).
		Mul(decimal.NewFromInt(mult)).
		DivRound(decimal.NewFromInt(outputQtyBase), 0)
	return cents.IntPart(), nil
}

// ItemValuation is the remaining batch value for one item, in cents.
type ItemValuation struct {
	ItemID          int64 `json:"item_id"`
	TotalValueCents int64 `json:"total_value_cents"`
}

// ValuationCents prices every remaining batch through LineCostCents and sums
// per item. Valuation never happens in SQL because remainders are base units
// while unit costs are per human unit.
func ValuationCents(tx *gorm.DB, itemID *int64) ([]ItemValuation, error) {
	batches, err := models.RemainingBatches(tx, itemID)
	if err != nil {
		return nil, err
	}

	itemCache := map[int64]*models.Item{}
	totals := map[int64]int64{}
	order := make([]int64, 0)
	for _, b := range batches {
		item, ok := itemCache[b.ItemID]
		if !ok {
			item, err = models.GetItemTx(tx, b.ItemID)
			if err != nil {
				return nil, err
			}
			itemCache[b.ItemID] = item
		}
		cents, err := LineCostCents(b.UnitCostCents, b.QtyRemainingBase, item.Dimension, item.ResolveUom())
		if err != nil {
			return nil, err
		}
		if _, seen := totals[b.ItemID]; !seen {
			order = append(order, b.ItemID)
		}
		totals[b.ItemID] += cents
	}

	rows := make([]ItemValuation, 0, len(order))
	for _, id := range order {
		rows = append(rows, ItemValuation{ItemID: id, TotalValueCents: totals[id]})
	}
	return rows, nil
}
