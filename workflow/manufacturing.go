package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Manufacturing is the one workflow that consumes several items and produces
// one. A run either completes fully — every required component FIFO-consumed,
// output batch created, run row written — or leaves the ledger untouched and
// records a failed_shortage run in its own transaction. There is no partial
// outcome and no oversell path.

var (
	ErrRecipeArchived        = errors.New("recipe_archived")
	ErrRunTargetRequired     = errors.New("run_requires_recipe_id_or_output_item_id")
	ErrRunTargetAmbiguous    = errors.New("run_accepts_recipe_id_or_output_item_id_not_both")
	ErrRunComponentsRequired = errors.New("ad_hoc_run_requires_components")
)

type RunComponent struct {
	ItemID          int64  `json:"item_id" binding:"required"`
	QuantityDecimal string `json:"quantity_decimal" binding:"required"`
	Uom             string `json:"uom"`
	IsOptional      bool   `json:"is_optional"`
}

// RunRequest targets either a stored recipe (RecipeID, optionally rescaled by
// QuantityDecimal) or an ad hoc component list (OutputItemID + Components).
// Exactly one of the two.
type RunRequest struct {
	RecipeID        *int64         `json:"recipe_id"`
	OutputItemID    *int64         `json:"output_item_id"`
	QuantityDecimal string         `json:"quantity_decimal"`
	Uom             string         `json:"uom"`
	Components      []RunComponent `json:"components"`
	Notes           *string        `json:"notes"`
}

// PlannedComponent is one input line of a validated plan, all quantities in
// base units of the component's own dimension.
type PlannedComponent struct {
	Item          *models.Item `json:"item"`
	RequiredBase  int64        `json:"required_base"`
	AvailableBase int64        `json:"available_base"`
	IsOptional    bool         `json:"is_optional"`
	Skipped       bool         `json:"skipped"`
}

// RunPlan is the dry-run result: what would be consumed and produced, plus
// the shortage list when required components cannot be covered.
type RunPlan struct {
	RecipeID      *int64             `json:"recipe_id"`
	OutputItem    *models.Item       `json:"output_item"`
	OutputQtyBase int64              `json:"output_qty_base"`
	Components    []PlannedComponent `json:"components"`
	Shortages     []models.Shortage  `json:"shortages"`
}

func (p *RunPlan) HasShortage() bool {
	return len(p.Shortages) > 0
}

// scaleComponentQty rescales a recipe component to the requested output size:
// qtyRequiredBase * outputQtyBase / recipeOutputQtyBase, exact rational math
// with a single half-up rounding at the end.
func scaleComponentQty(qtyRequiredBase, outputQtyBase, recipeOutputQtyBase int64) int64 {
	return decimal.NewFromInt(qtyRequiredBase).
		Mul(decimal.NewFromInt(outputQtyBase)).
		DivRound(decimal.NewFromInt(recipeOutputQtyBase), 0).
		IntPart()
}

func planRun(tx *gorm.DB, input *RunRequest) (*RunPlan, error) {
	hasRecipe := input.RecipeID != nil
	hasAdHoc := input.OutputItemID != nil
	if hasRecipe == hasAdHoc {
		if hasRecipe {
			return nil, ErrRunTargetAmbiguous
		}
		return nil, ErrRunTargetRequired
	}

	plan := &RunPlan{}

	type rawComponent struct {
		itemID       int64
		requiredBase int64
		isOptional   bool
		// requiredBase unset until the item's dimension is known
		quantityDecimal string
		uom             string
		needsNormalize  bool
	}
	var raw []rawComponent

	if hasRecipe {
		recipe, err := models.GetRecipeTx(tx, *input.RecipeID)
		if err != nil {
			return nil, err
		}
		if recipe.Archived {
			return nil, ErrRecipeArchived
		}
		output, err := models.GetItemTx(tx, recipe.OutputItemID)
		if err != nil {
			return nil, err
		}

		outputQtyBase := recipe.OutputQtyBase
		if input.QuantityDecimal != "" {
			uom := input.Uom
			if uom == "" {
				uom = output.ResolveUom()
			}
			outputQtyBase, err = models.NormalizeQuantityToBaseInt(output.Dimension, uom, input.QuantityDecimal)
			if err != nil {
				return nil, err
			}
		}

		plan.RecipeID = &recipe.ID
		plan.OutputItem = output
		plan.OutputQtyBase = outputQtyBase
		for _, ri := range recipe.Items {
			required := scaleComponentQty(ri.QtyRequiredBase, outputQtyBase, recipe.OutputQtyBase)
			if required <= 0 {
				continue
			}
			raw = append(raw, rawComponent{
				itemID:       ri.ItemID,
				requiredBase: required,
				isOptional:   ri.IsOptional,
			})
		}
	} else {
		if len(input.Components) == 0 {
			return nil, ErrRunComponentsRequired
		}
		output, err := models.GetItemTx(tx, *input.OutputItemID)
		if err != nil {
			return nil, err
		}
		uom := input.Uom
		if uom == "" {
			uom = output.ResolveUom()
		}
		outputQtyBase, err := models.NormalizeQuantityToBaseInt(output.Dimension, uom, input.QuantityDecimal)
		if err != nil {
			return nil, err
		}

		plan.OutputItem = output
		plan.OutputQtyBase = outputQtyBase
		for _, c := range input.Components {
			raw = append(raw, rawComponent{
				itemID:          c.ItemID,
				isOptional:      c.IsOptional,
				quantityDecimal: c.QuantityDecimal,
				uom:             c.Uom,
				needsNormalize:  true,
			})
		}
	}

	for _, rc := range raw {
		item, err := models.GetItemTx(tx, rc.itemID)
		if err != nil {
			return nil, err
		}
		required := rc.requiredBase
		if rc.needsNormalize {
			uom := rc.uom
			if uom == "" {
				uom = item.ResolveUom()
			}
			required, err = models.NormalizeQuantityToBaseInt(item.Dimension, uom, rc.quantityDecimal)
			if err != nil {
				return nil, err
			}
		}
		available, err := models.OnHandQty(tx, item.ID)
		if err != nil {
			return nil, err
		}

		pc := PlannedComponent{
			Item:          item,
			RequiredBase:  required,
			AvailableBase: available,
			IsOptional:    rc.isOptional,
		}
		if available < required {
			if rc.isOptional {
				pc.Skipped = true
			} else {
				plan.Shortages = append(plan.Shortages, models.Shortage{
					ItemID:        item.ID,
					RequiredBase:  required,
					AvailableBase: available,
				})
			}
		}
		plan.Components = append(plan.Components, pc)
	}
	return plan, nil
}

// ValidateRun is the pure dry run: it normalizes, scales and checks
// availability without writing anything. Calling it twice in a row returns
// the same plan.
func ValidateRun(ctx context.Context, input *RunRequest) (*RunPlan, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}
	return planRun(db.WithContext(ctx), input)
}

// ConsumedComponent reports what one completed run actually took from stock.
type ConsumedComponent struct {
	ItemID    int64        `json:"item_id"`
	QtyBase   int64        `json:"qty_base"`
	CostCents int64        `json:"cost_cents"`
	Skipped   bool         `json:"skipped,omitempty"`
	Slices    []Allocation `json:"slices,omitempty"`
}

// RunResult is the outcome of ExecuteRun. A failed run still carries the
// persisted audit row; callers branch on Run.Status.
type RunResult struct {
	Run       *models.ManufacturingRun `json:"run"`
	Output    *models.Item             `json:"output,omitempty"`
	Consumed  []ConsumedComponent      `json:"consumed,omitempty"`
	Shortages []models.Shortage        `json:"shortages,omitempty"`
}

type runMeta struct {
	Consumed  []ConsumedComponent `json:"consumed,omitempty"`
	Shortages []models.Shortage   `json:"shortages,omitempty"`
}

func marshalRunMeta(meta runMeta) string {
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// recordFailedRun persists the shortage audit row in its own transaction so
// it survives the rollback of the attempt itself.
func recordFailedRun(ctx context.Context, db *gorm.DB, input *RunRequest, plan *RunPlan, correlationID string) (*models.ManufacturingRun, error) {
	run := models.ManufacturingRun{
		RecipeID:      plan.RecipeID,
		OutputItemID:  plan.OutputItem.ID,
		OutputQtyBase: plan.OutputQtyBase,
		Status:        models.RunStatusFailedShortage,
		CorrelationID: correlationID,
		Notes:         input.Notes,
		Meta:          marshalRunMeta(runMeta{Shortages: plan.Shortages}),
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ExecuteRun attempts the run atomically. The plan is recomputed inside the
// transaction so the availability check and the consumption see the same
// snapshot; a shortage found at any point rolls the whole attempt back.
func ExecuteRun(ctx context.Context, logger *logrus.Logger, input *RunRequest) (*RunResult, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}
	correlationID := uuid.New().String()

	var (
		result   *RunResult
		execPlan *RunPlan
	)
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := planRun(tx, input)
		if err != nil {
			return err
		}
		execPlan = plan
		if plan.HasShortage() {
			return &models.InsufficientStockError{Shortages: plan.Shortages}
		}

		totalCostCents := int64(0)
		consumed := make([]ConsumedComponent, 0, len(plan.Components))
		for _, pc := range plan.Components {
			if pc.Skipped {
				consumed = append(consumed, ConsumedComponent{
					ItemID:  pc.Item.ID,
					Skipped: true,
				})
				continue
			}
			allocations, err := stockOutTx(tx, pc.Item.ID, pc.RequiredBase, models.SourceKindManufacturing, &correlationID)
			if err != nil {
				return err
			}
			lineCents := int64(0)
			for _, alloc := range allocations {
				cents, err := LineCostCents(alloc.UnitCostCents, alloc.QtyBase, pc.Item.Dimension, pc.Item.ResolveUom())
				if err != nil {
					return err
				}
				lineCents += cents
			}
			totalCostCents += lineCents
			consumed = append(consumed, ConsumedComponent{
				ItemID:    pc.Item.ID,
				QtyBase:   pc.RequiredBase,
				CostCents: lineCents,
				Slices:    allocations,
			})
		}

		outputUnitCostCents, err := OutputUnitCostCents(totalCostCents, plan.OutputQtyBase,
			plan.OutputItem.Dimension, plan.OutputItem.ResolveUom())
		if err != nil {
			return err
		}
		if _, _, err := stockInTx(tx, plan.OutputItem.ID, plan.OutputQtyBase, outputUnitCostCents,
			models.SourceKindManufacturing, &correlationID); err != nil {
			return err
		}
		plan.OutputItem.QtyStoredBase += plan.OutputQtyBase

		now := time.Now().UTC()
		run := models.ManufacturingRun{
			RecipeID:            plan.RecipeID,
			OutputItemID:        plan.OutputItem.ID,
			OutputQtyBase:       plan.OutputQtyBase,
			Status:              models.RunStatusCompleted,
			OutputUnitCostCents: outputUnitCostCents,
			CorrelationID:       correlationID,
			Notes:               input.Notes,
			Meta:                marshalRunMeta(runMeta{Consumed: consumed}),
			ExecutedAt:          &now,
		}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}

		result = &RunResult{
			Run:      &run,
			Output:   plan.OutputItem,
			Consumed: consumed,
		}
		return nil
	})
	if err == nil {
		return result, nil
	}

	// Any shortage — found by the plan or surfaced mid-consumption (a
	// component listed twice, a raced batch) — still leaves one audit row.
	if ise, short := models.AsInsufficientStock(err); short && execPlan != nil {
		execPlan.Shortages = ise.Shortages
		run, recErr := recordFailedRun(ctx, db, input, execPlan, correlationID)
		if recErr != nil {
			config.LogError(logger, "workflow", "ExecuteRun", "failed to persist shortage run", input, recErr)
			return nil, recErr
		}
		return &RunResult{
			Run:       run,
			Shortages: ise.Shortages,
		}, nil
	}
	config.LogError(logger, "workflow", "ExecuteRun", "manufacturing transaction failed", input, err)
	return nil, err
}
