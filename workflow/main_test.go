package workflow_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/True-Good-Craft/TGC-BUS-Core/workflow"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB points the global connection at a fresh in-memory database
// named after the test so parallel packages never share state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	config.SetDB(db)
	if err := models.MigrateTable(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreateItem(t *testing.T, name string, dimension models.Dimension, uom string, priceCents int64) *models.Item {
	t.Helper()
	item, err := models.CreateItem(context.Background(), &models.NewItem{
		Name:       name,
		Dimension:  dimension,
		Uom:        uom,
		PriceCents: priceCents,
	})
	if err != nil {
		t.Fatalf("create item %s: %v", name, err)
	}
	return item
}

func mustStockIn(t *testing.T, itemID int64, quantity string, uom string, unitCostCents int64) *workflow.StockInResult {
	t.Helper()
	result, err := workflow.StockIn(context.Background(), config.GetLogger(), &workflow.StockInRequest{
		ItemID:          itemID,
		QuantityDecimal: quantity,
		Uom:             uom,
		UnitCostCents:   unitCostCents,
	})
	if err != nil {
		t.Fatalf("stock in item %d: %v", itemID, err)
	}
	return result
}

func countMovements(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.ItemMovement{}).Count(&n).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	return n
}

func batchRemaining(t *testing.T, db *gorm.DB, batchID int64) int64 {
	t.Helper()
	var batch models.ItemBatch
	if err := db.First(&batch, batchID).Error; err != nil {
		t.Fatalf("load batch %d: %v", batchID, err)
	}
	return batch.QtyRemainingBase
}

func itemOnHandCache(t *testing.T, db *gorm.DB, itemID int64) int64 {
	t.Helper()
	var item models.Item
	if err := db.First(&item, itemID).Error; err != nil {
		t.Fatalf("load item %d: %v", itemID, err)
	}
	return item.QtyStoredBase
}

// assertLedgerIntegrity checks the core invariant: the signed movement sum,
// the batch remainders and the denormalized cache all agree.
func assertLedgerIntegrity(t *testing.T, db *gorm.DB, itemID int64) {
	t.Helper()
	movementSum, err := models.MovementSum(db, itemID)
	if err != nil {
		t.Fatalf("movement sum: %v", err)
	}
	onHand, err := models.OnHandQty(db, itemID)
	if err != nil {
		t.Fatalf("on hand: %v", err)
	}
	cache := itemOnHandCache(t, db, itemID)
	if movementSum != onHand || movementSum != cache {
		t.Fatalf("ledger out of sync for item %d: movements=%d batches=%d cache=%d",
			itemID, movementSum, onHand, cache)
	}
}
