package workflow_test

import (
	"context"
	"testing"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/True-Good-Craft/TGC-BUS-Core/workflow"
)

func TestValidateRunIsPure(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	component := mustCreateItem(t, "wax", models.DimensionWeight, "g", 0)
	output := mustCreateItem(t, "candle", models.DimensionCount, "ea", 0)
	mustStockIn(t, component.ID, "100", "g", 2)
	before := countMovements(t, db)

	req := &workflow.RunRequest{
		OutputItemID:    &output.ID,
		QuantityDecimal: "1",
		Uom:             "ea",
		Components: []workflow.RunComponent{
			{ItemID: component.ID, QuantityDecimal: "250", Uom: "g"},
		},
	}

	first, err := workflow.ValidateRun(ctx, req)
	if err != nil {
		t.Fatalf("first validate: %v", err)
	}
	second, err := workflow.ValidateRun(ctx, req)
	if err != nil {
		t.Fatalf("second validate: %v", err)
	}

	if !first.HasShortage() || !second.HasShortage() {
		t.Fatalf("expected shortage in both plans")
	}
	if len(first.Shortages) != len(second.Shortages) ||
		first.Shortages[0] != second.Shortages[0] {
		t.Fatalf("plans differ: %+v vs %+v", first.Shortages, second.Shortages)
	}
	if s := first.Shortages[0]; s.RequiredBase != 250000 || s.AvailableBase != 100000 {
		t.Fatalf("unexpected shortage detail: %+v", s)
	}
	if got := countMovements(t, db); got != before {
		t.Fatalf("validation wrote movements: %d -> %d", before, got)
	}
}

func TestExecuteRunAdHocCosting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	component := mustCreateItem(t, "blank", models.DimensionCount, "ea", 0)
	output := mustCreateItem(t, "kit", models.DimensionCount, "ea", 0)

	// Three one-each lots at 5, 6 and 4 cents.
	mustStockIn(t, component.ID, "1", "ea", 5)
	mustStockIn(t, component.ID, "1", "ea", 6)
	mustStockIn(t, component.ID, "1", "ea", 4)

	result, err := workflow.ExecuteRun(ctx, logger, &workflow.RunRequest{
		OutputItemID:    &output.ID,
		QuantityDecimal: "6",
		Uom:             "ea",
		Components: []workflow.RunComponent{
			{ItemID: component.ID, QuantityDecimal: "3", Uom: "ea"},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Run.Status != models.RunStatusCompleted {
		t.Fatalf("run status: got %s", result.Run.Status)
	}
	// 15 cents of inputs across 6 each: 2.5 rounds up to 3.
	if result.Run.OutputUnitCostCents != 3 {
		t.Fatalf("output unit cost: got %d, want 3", result.Run.OutputUnitCostCents)
	}
	if len(result.Consumed) != 1 || result.Consumed[0].CostCents != 15 {
		t.Fatalf("unexpected consumption: %+v", result.Consumed)
	}

	// Every movement of the run shares the correlation id and never oversells.
	var movements []models.ItemMovement
	if err := db.Where("source_kind = ?", models.SourceKindManufacturing).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 4 {
		t.Fatalf("got %d run movements, want 4 (3 consume slices + 1 output)", len(movements))
	}
	for _, m := range movements {
		if m.SourceID == nil || *m.SourceID != result.Run.CorrelationID {
			t.Fatalf("movement %d missing run correlation id", m.ID)
		}
		if m.IsOversold {
			t.Fatalf("manufacturing movement %d flagged oversold", m.ID)
		}
	}

	if got := itemOnHandCache(t, db, component.ID); got != 0 {
		t.Fatalf("component on hand: got %d, want 0", got)
	}
	if got := itemOnHandCache(t, db, output.ID); got != 6000 {
		t.Fatalf("output on hand: got %d, want 6000", got)
	}
	assertLedgerIntegrity(t, db, component.ID)
	assertLedgerIntegrity(t, db, output.ID)
}

func TestExecuteRunRecipeScaling(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	component := mustCreateItem(t, "board", models.DimensionCount, "ea", 0)
	output := mustCreateItem(t, "shelf", models.DimensionCount, "ea", 0)
	mustStockIn(t, component.ID, "10", "ea", 200)

	// Recipe makes 2 shelves from 3 boards.
	recipe, err := models.CreateRecipe(ctx, &models.NewRecipe{
		Name:            "shelf",
		OutputItemID:    output.ID,
		QuantityDecimal: "2",
		Uom:             "ea",
		Items: []models.NewRecipeItem{
			{ItemID: component.ID, QuantityDecimal: "3", Uom: "ea"},
		},
	})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}

	// Running 3 shelves scales boards to 4.5 each = 4500 base, exact.
	result, err := workflow.ExecuteRun(ctx, logger, &workflow.RunRequest{
		RecipeID:        &recipe.ID,
		QuantityDecimal: "3",
		Uom:             "ea",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Run.Status != models.RunStatusCompleted {
		t.Fatalf("run status: got %s", result.Run.Status)
	}
	if result.Consumed[0].QtyBase != 4500 {
		t.Fatalf("scaled consumption: got %d, want 4500", result.Consumed[0].QtyBase)
	}
	if got := itemOnHandCache(t, db, component.ID); got != 5500 {
		t.Fatalf("boards left: got %d, want 5500", got)
	}
	// 4500 base at 200 cents/ea = 900 cents across 3 shelves = 300 each.
	if result.Run.OutputUnitCostCents != 300 {
		t.Fatalf("output unit cost: got %d, want 300", result.Run.OutputUnitCostCents)
	}
}

func TestExecuteRunShortagePersistsFailedRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	component := mustCreateItem(t, "fabric", models.DimensionArea, "cm2", 0)
	output := mustCreateItem(t, "bag", models.DimensionCount, "ea", 0)
	mustStockIn(t, component.ID, "100", "cm2", 1)
	before := countMovements(t, db)

	result, err := workflow.ExecuteRun(ctx, logger, &workflow.RunRequest{
		OutputItemID:    &output.ID,
		QuantityDecimal: "1",
		Uom:             "ea",
		Components: []workflow.RunComponent{
			{ItemID: component.ID, QuantityDecimal: "500", Uom: "cm2"},
		},
	})
	if err != nil {
		t.Fatalf("execute returned error instead of failed run: %v", err)
	}
	if result.Run.Status != models.RunStatusFailedShortage {
		t.Fatalf("run status: got %s, want %s", result.Run.Status, models.RunStatusFailedShortage)
	}
	if result.Run.ID == 0 {
		t.Fatalf("failed run must be persisted")
	}
	if len(result.Shortages) != 1 || result.Shortages[0].RequiredBase != 50000 {
		t.Fatalf("unexpected shortages: %+v", result.Shortages)
	}

	if got := countMovements(t, db); got != before {
		t.Fatalf("failed run wrote movements: %d -> %d", before, got)
	}
	if got := itemOnHandCache(t, db, component.ID); got != 10000 {
		t.Fatalf("component stock changed on failure: got %d", got)
	}
	assertLedgerIntegrity(t, db, component.ID)
}

func TestExecuteRunDuplicateComponentShortagePersistsRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	component := mustCreateItem(t, "hinge", models.DimensionCount, "ea", 0)
	output := mustCreateItem(t, "door", models.DimensionCount, "ea", 0)
	mustStockIn(t, component.ID, "3", "ea", 50)
	before := countMovements(t, db)

	// Each line alone is covered by the 3 on hand, so planning passes; the
	// shortage only surfaces while consuming the second line.
	req := &workflow.RunRequest{
		OutputItemID:    &output.ID,
		QuantityDecimal: "1",
		Uom:             "ea",
		Components: []workflow.RunComponent{
			{ItemID: component.ID, QuantityDecimal: "2", Uom: "ea"},
			{ItemID: component.ID, QuantityDecimal: "2", Uom: "ea"},
		},
	}
	plan, err := workflow.ValidateRun(ctx, req)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if plan.HasShortage() {
		t.Fatalf("per-line validation must pass: %+v", plan.Shortages)
	}

	result, err := workflow.ExecuteRun(ctx, logger, req)
	if err != nil {
		t.Fatalf("execute returned error instead of failed run: %v", err)
	}
	if result.Run.Status != models.RunStatusFailedShortage {
		t.Fatalf("run status: got %s, want %s", result.Run.Status, models.RunStatusFailedShortage)
	}
	if result.Run.ID == 0 {
		t.Fatalf("execution-time shortage must still persist an audit run")
	}
	if len(result.Shortages) != 1 || result.Shortages[0].RequiredBase != 2000 || result.Shortages[0].AvailableBase != 1000 {
		t.Fatalf("unexpected shortages: %+v", result.Shortages)
	}

	var runs int64
	if err := db.Model(&models.ManufacturingRun{}).Count(&runs).Error; err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 1 {
		t.Fatalf("got %d run rows, want 1", runs)
	}
	if got := countMovements(t, db); got != before {
		t.Fatalf("failed run wrote movements: %d -> %d", before, got)
	}
	if got := itemOnHandCache(t, db, component.ID); got != 3000 {
		t.Fatalf("component stock changed on failure: got %d, want 3000", got)
	}
	assertLedgerIntegrity(t, db, component.ID)
}

func TestExecuteRunSkipsShortOptionalComponent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	required := mustCreateItem(t, "base oil", models.DimensionVolume, "ml", 0)
	optional := mustCreateItem(t, "fragrance", models.DimensionVolume, "ml", 0)
	output := mustCreateItem(t, "soap", models.DimensionCount, "ea", 0)
	mustStockIn(t, required.ID, "500", "ml", 1)
	// No fragrance in stock at all.

	result, err := workflow.ExecuteRun(ctx, logger, &workflow.RunRequest{
		OutputItemID:    &output.ID,
		QuantityDecimal: "4",
		Uom:             "ea",
		Components: []workflow.RunComponent{
			{ItemID: required.ID, QuantityDecimal: "200", Uom: "ml"},
			{ItemID: optional.ID, QuantityDecimal: "10", Uom: "ml", IsOptional: true},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.Run.Status != models.RunStatusCompleted {
		t.Fatalf("optional shortage must not fail the run: %s", result.Run.Status)
	}
	if len(result.Consumed) != 2 {
		t.Fatalf("got %d consumed entries, want 2", len(result.Consumed))
	}
	if !result.Consumed[1].Skipped || result.Consumed[1].QtyBase != 0 {
		t.Fatalf("optional component must be skipped: %+v", result.Consumed[1])
	}
	if got := itemOnHandCache(t, db, optional.ID); got != 0 {
		t.Fatalf("skipped component consumed: %d", got)
	}
	if got := itemOnHandCache(t, db, required.ID); got != 300 {
		t.Fatalf("required component on hand: got %d, want 300", got)
	}
}

func TestExecuteRunRefusesArchivedRecipe(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	component := mustCreateItem(t, "clay", models.DimensionWeight, "g", 0)
	output := mustCreateItem(t, "pot", models.DimensionCount, "ea", 0)
	mustStockIn(t, component.ID, "1000", "g", 1)

	recipe, err := models.CreateRecipe(ctx, &models.NewRecipe{
		Name:            "pot",
		OutputItemID:    output.ID,
		QuantityDecimal: "1",
		Uom:             "ea",
		Items: []models.NewRecipeItem{
			{ItemID: component.ID, QuantityDecimal: "250", Uom: "g"},
		},
	})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	if _, err := models.ArchiveRecipe(ctx, recipe.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}

	_, err = workflow.ExecuteRun(ctx, logger, &workflow.RunRequest{RecipeID: &recipe.ID})
	if err != workflow.ErrRecipeArchived {
		t.Fatalf("expected ErrRecipeArchived, got %v", err)
	}
}

func TestRunRequestTargetValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	if _, err := workflow.ValidateRun(ctx, &workflow.RunRequest{}); err != workflow.ErrRunTargetRequired {
		t.Fatalf("expected ErrRunTargetRequired, got %v", err)
	}

	recipeID := int64(1)
	outputID := int64(2)
	_, err := workflow.ValidateRun(ctx, &workflow.RunRequest{RecipeID: &recipeID, OutputItemID: &outputID})
	if err != workflow.ErrRunTargetAmbiguous {
		t.Fatalf("expected ErrRunTargetAmbiguous, got %v", err)
	}

	_, err = workflow.ValidateRun(ctx, &workflow.RunRequest{OutputItemID: &outputID, QuantityDecimal: "1"})
	if err != workflow.ErrRunComponentsRequired {
		t.Fatalf("expected ErrRunComponentsRequired, got %v", err)
	}
}
