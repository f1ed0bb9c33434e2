package workflow_test

import (
	"context"
	"testing"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/True-Good-Craft/TGC-BUS-Core/workflow"
)

func TestPurchaseThenSellScenario(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	item := mustCreateItem(t, "mug", models.DimensionCount, "ea", 800)
	other := mustCreateItem(t, "coaster", models.DimensionCount, "ea", 200)

	purchase, err := workflow.Purchase(ctx, logger, &workflow.PurchaseRequest{
		Lines: []workflow.PurchaseLine{
			{ItemID: item.ID, QuantityDecimal: "5", Uom: "ea", UnitCostCents: 500},
			{ItemID: other.ID, QuantityDecimal: "12", Uom: "ea", UnitCostCents: 40},
		},
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(purchase.Lines) != 2 {
		t.Fatalf("got %d purchase lines, want 2", len(purchase.Lines))
	}
	batch := purchase.Lines[0].Batch
	if batch.QtyInitialBase != 5000 || batch.QtyRemainingBase != 5000 {
		t.Fatalf("unexpected batch quantities: %+v", batch)
	}
	if batch.SourceKind != models.SourceKindPurchase {
		t.Fatalf("batch source kind: got %s", batch.SourceKind)
	}
	// One receipt, one source id: every line's batch and movement carries it.
	for i, line := range purchase.Lines {
		if line.SourceID != purchase.SourceID {
			t.Fatalf("line %d source id: got %s, want %s", i, line.SourceID, purchase.SourceID)
		}
		if line.Batch.SourceID == nil || *line.Batch.SourceID != purchase.SourceID {
			t.Fatalf("line %d batch missing shared source id", i)
		}
	}
	var purchaseMovements []models.ItemMovement
	if err := db.Where("source_kind = ?", models.SourceKindPurchase).Find(&purchaseMovements).Error; err != nil {
		t.Fatalf("load purchase movements: %v", err)
	}
	if len(purchaseMovements) != 2 {
		t.Fatalf("got %d purchase movements, want 2", len(purchaseMovements))
	}
	for _, m := range purchaseMovements {
		if m.SourceID == nil || *m.SourceID != purchase.SourceID {
			t.Fatalf("purchase movement %d missing shared source id", m.ID)
		}
	}
	assertLedgerIntegrity(t, db, item.ID)
	assertLedgerIntegrity(t, db, other.ID)

	sale, err := workflow.StockOut(ctx, logger, &workflow.StockOutRequest{
		ItemID:          item.ID,
		QuantityDecimal: "2",
		Uom:             "ea",
		Reason:          models.StockOutReasonSold,
	})
	if err != nil {
		t.Fatalf("stock out: %v", err)
	}
	if sale.QtyBase != 2000 {
		t.Fatalf("sale qty base: got %d, want 2000", sale.QtyBase)
	}
	if got := itemOnHandCache(t, db, item.ID); got != 3000 {
		t.Fatalf("on hand after sale: got %d, want 3000", got)
	}
	assertLedgerIntegrity(t, db, item.ID)

	// The sale ledger rows are negative and share one source id.
	var movements []models.ItemMovement
	if err := db.Where("source_kind = ?", models.SourceKindSold).Find(&movements).Error; err != nil {
		t.Fatalf("load sale movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("got %d sale movements, want 1", len(movements))
	}
	if movements[0].QtyChangeBase != -2000 || movements[0].UnitCostCents != 500 {
		t.Fatalf("unexpected sale movement: %+v", movements[0])
	}
	if movements[0].SourceID == nil || *movements[0].SourceID != sale.SourceID {
		t.Fatalf("sale movement missing shared source id")
	}
}

func TestSoldStockOutRecordsCashEvent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	item := mustCreateItem(t, "candle", models.DimensionCount, "ea", 800)
	mustStockIn(t, item.ID, "10", "ea", 300)

	// No explicit price: falls back to the item's list price.
	sale, err := workflow.StockOut(ctx, logger, &workflow.StockOutRequest{
		ItemID:          item.ID,
		QuantityDecimal: "2",
		Uom:             "ea",
		Reason:          models.StockOutReasonSold,
	})
	if err != nil {
		t.Fatalf("stock out: %v", err)
	}
	if sale.CashEventID == nil {
		t.Fatalf("sale of a count item must record a cash event")
	}
	var event models.CashEvent
	if err := db.First(&event, *sale.CashEventID).Error; err != nil {
		t.Fatalf("load cash event: %v", err)
	}
	if event.AmountCents != 1600 || event.UnitPriceCents != 800 {
		t.Fatalf("unexpected cash amounts: %+v", event)
	}
	if event.SourceID == nil || *event.SourceID != sale.SourceID {
		t.Fatalf("cash event must share the sale's source id")
	}

	// Losses never touch cash.
	loss, err := workflow.StockOut(ctx, logger, &workflow.StockOutRequest{
		ItemID:          item.ID,
		QuantityDecimal: "1",
		Uom:             "ea",
		Reason:          models.StockOutReasonLoss,
	})
	if err != nil {
		t.Fatalf("loss stock out: %v", err)
	}
	if loss.CashEventID != nil {
		t.Fatalf("loss must not record a cash event")
	}
}

func TestSoldNonCountItemSkipsCashEvent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	item := mustCreateItem(t, "resin", models.DimensionWeight, "kg", 2500)
	mustStockIn(t, item.ID, "2", "kg", 1000)

	sale, err := workflow.StockOut(ctx, logger, &workflow.StockOutRequest{
		ItemID:          item.ID,
		QuantityDecimal: "0.5",
		Uom:             "kg",
		Reason:          models.StockOutReasonSold,
	})
	if err != nil {
		t.Fatalf("stock out: %v", err)
	}
	if sale.CashEventID != nil {
		t.Fatalf("cash events apply to count items only")
	}
}

func TestStockOutShortageMutatesNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	item := mustCreateItem(t, "clip", models.DimensionCount, "ea", 0)
	mustStockIn(t, item.ID, "1", "ea", 100)
	before := countMovements(t, db)

	_, err := workflow.StockOut(ctx, logger, &workflow.StockOutRequest{
		ItemID:          item.ID,
		QuantityDecimal: "2",
		Uom:             "ea",
		Reason:          models.StockOutReasonConsume,
	})
	if _, ok := models.AsInsufficientStock(err); !ok {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if got := countMovements(t, db); got != before {
		t.Fatalf("shortage wrote movements: %d -> %d", before, got)
	}
	if got := itemOnHandCache(t, db, item.ID); got != 1000 {
		t.Fatalf("cache changed on shortage: got %d", got)
	}
	assertLedgerIntegrity(t, db, item.ID)
}

func TestAdjustBothDirections(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	logger := config.GetLogger()
	item := mustCreateItem(t, "bolt", models.DimensionCount, "ea", 0)

	up, err := workflow.Adjust(ctx, logger, &workflow.AdjustRequest{
		ItemID:          item.ID,
		QuantityDecimal: "4",
		Uom:             "ea",
		UnitCostCents:   50,
	})
	if err != nil {
		t.Fatalf("adjust up: %v", err)
	}
	if up.Direction != "in" || up.QtyBase != 4000 {
		t.Fatalf("unexpected upward adjustment: %+v", up)
	}

	down, err := workflow.Adjust(ctx, logger, &workflow.AdjustRequest{
		ItemID:          item.ID,
		QuantityDecimal: "-1",
		Uom:             "ea",
	})
	if err != nil {
		t.Fatalf("adjust down: %v", err)
	}
	if down.Direction != "out" || down.QtyBase != 1000 {
		t.Fatalf("unexpected downward adjustment: %+v", down)
	}
	if got := itemOnHandCache(t, db, item.ID); got != 3000 {
		t.Fatalf("on hand after adjustments: got %d, want 3000", got)
	}
	assertLedgerIntegrity(t, db, item.ID)

	// Zero is a caller mistake, not a no-op.
	if _, err := workflow.Adjust(ctx, logger, &workflow.AdjustRequest{
		ItemID:          item.ID,
		QuantityDecimal: "0",
		Uom:             "ea",
	}); err == nil {
		t.Fatalf("zero adjustment must be rejected")
	}
}

func TestValuationCents(t *testing.T) {
	db := setupTestDB(t)
	item := mustCreateItem(t, "jar", models.DimensionCount, "ea", 0)
	mustStockIn(t, item.ID, "5", "ea", 500)
	mustStockIn(t, item.ID, "3", "ea", 700)

	rows, err := workflow.ValuationCents(db, &item.ID)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d valuation rows, want 1", len(rows))
	}
	// 5*500 + 3*700 = 4600 cents.
	if rows[0].TotalValueCents != 4600 {
		t.Fatalf("got %d cents, want 4600", rows[0].TotalValueCents)
	}
}
