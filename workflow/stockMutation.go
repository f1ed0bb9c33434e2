package workflow

import (
	"context"
	"errors"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Stock mutation service. Every write to batches, movements, cash events and
// the on-hand cache goes through this file; nothing else in the repo mutates
// stock. Each public operation is one gorm transaction, and every movement it
// appends shares one source_id.

var ErrInvalidStockOutReason = errors.New("invalid_stock_out_reason")

type StockInRequest struct {
	ItemID          int64             `json:"item_id" binding:"required"`
	QuantityDecimal string            `json:"quantity_decimal" binding:"required"`
	Uom             string            `json:"uom"`
	UnitCostCents   int64             `json:"unit_cost_cents"`
	SourceKind      models.SourceKind `json:"source_kind"`
	SourceID        *string           `json:"source_id"`
}

type StockInResult struct {
	Item       *models.Item      `json:"item"`
	Batch      *models.ItemBatch `json:"batch"`
	MovementID int64             `json:"movement_id"`
	SourceID   string            `json:"source_id"`
}

// stockInTx creates a batch, appends the positive movement and bumps the
// on-hand cache, all inside the caller's transaction.
func stockInTx(tx *gorm.DB, itemID int64, qtyBase int64, unitCostCents int64, sourceKind models.SourceKind, sourceID *string) (*models.ItemBatch, int64, error) {
	batch, err := models.AddBatch(tx, itemID, qtyBase, unitCostCents, sourceKind, sourceID)
	if err != nil {
		return nil, 0, err
	}
	movementID, err := models.AppendMovement(tx, &models.ItemMovement{
		ItemID:        itemID,
		BatchID:       &batch.ID,
		QtyChangeBase: qtyBase,
		UnitCostCents: unitCostCents,
		SourceKind:    sourceKind,
		SourceID:      sourceID,
	})
	if err != nil {
		return nil, 0, err
	}
	if err := bumpOnHand(tx, itemID, qtyBase); err != nil {
		return nil, 0, err
	}
	return batch, movementID, nil
}

func bumpOnHand(tx *gorm.DB, itemID int64, deltaBase int64) error {
	return tx.Model(&models.Item{}).
		Where("id = ?", itemID).
		Update("qty_stored_base", gorm.Expr("qty_stored_base + ?", deltaBase)).Error
}

// StockIn records an inbound lot. The quantity arrives as a wire decimal in
// the caller's uom and is normalized against the item's dimension before any
// write happens.
func StockIn(ctx context.Context, logger *logrus.Logger, input *StockInRequest) (*StockInResult, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}
	if input.UnitCostCents < 0 {
		return nil, models.ErrInvalidUnitCost
	}
	sourceKind := input.SourceKind
	if sourceKind == "" {
		sourceKind = models.SourceKindStockIn
	}
	sourceID := input.SourceID
	if sourceID == nil {
		generated := uuid.New().String()
		sourceID = &generated
	}

	var result *StockInResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := models.GetItemTx(tx, input.ItemID)
		if err != nil {
			return err
		}
		uom := input.Uom
		if uom == "" {
			uom = item.ResolveUom()
		}
		qtyBase, err := models.NormalizeQuantityToBaseInt(item.Dimension, uom, input.QuantityDecimal)
		if err != nil {
			return err
		}
		batch, movementID, err := stockInTx(tx, item.ID, qtyBase, input.UnitCostCents, sourceKind, sourceID)
		if err != nil {
			return err
		}
		item.QtyStoredBase += qtyBase
		result = &StockInResult{
			Item:       item,
			Batch:      batch,
			MovementID: movementID,
			SourceID:   *sourceID,
		}
		return nil
	})
	if err != nil {
		config.LogError(logger, "workflow", "StockIn", "stock-in transaction failed", input, err)
		return nil, err
	}
	return result, nil
}

type StockOutRequest struct {
	ItemID          int64                 `json:"item_id" binding:"required"`
	QuantityDecimal string                `json:"quantity_decimal" binding:"required"`
	Uom             string                `json:"uom"`
	Reason          models.StockOutReason `json:"reason" binding:"required"`
	UnitPriceCents  *int64                `json:"unit_price_cents"`
	SourceID        *string               `json:"source_id"`
	Notes           *string               `json:"notes"`
}

type StockOutResult struct {
	Item        *models.Item `json:"item"`
	QtyBase     int64        `json:"qty_base"`
	Allocations []Allocation `json:"allocations"`
	SourceID    string       `json:"source_id"`
	CashEventID *int64       `json:"cash_event_id,omitempty"`
}

func reasonToSourceKind(reason models.StockOutReason) (models.SourceKind, error) {
	switch reason {
	case models.StockOutReasonSold:
		return models.SourceKindSold, nil
	case models.StockOutReasonLoss:
		return models.SourceKindLoss, nil
	case models.StockOutReasonTheft:
		return models.SourceKindTheft, nil
	case models.StockOutReasonAdjustment:
		return models.SourceKindAdjustment, nil
	case models.StockOutReasonConsume:
		return models.SourceKindConsume, nil
	case models.StockOutReasonOther:
		return models.SourceKindOther, nil
	}
	return "", ErrInvalidStockOutReason
}

// stockOutTx consumes stock FIFO and appends one negative movement per batch
// slice, each carrying that batch's unit cost. The caller owns the
// transaction and the source id.
func stockOutTx(tx *gorm.DB, itemID int64, qtyBase int64, sourceKind models.SourceKind, sourceID *string) ([]Allocation, error) {
	allocations, err := AllocateFifo(tx, itemID, qtyBase)
	if err != nil {
		return nil, err
	}
	for _, alloc := range allocations {
		batchID := alloc.BatchID
		if _, err := models.AppendMovement(tx, &models.ItemMovement{
			ItemID:        itemID,
			BatchID:       &batchID,
			QtyChangeBase: -alloc.QtyBase,
			UnitCostCents: alloc.UnitCostCents,
			SourceKind:    sourceKind,
			SourceID:      sourceID,
		}); err != nil {
			return nil, err
		}
	}
	if err := bumpOnHand(tx, itemID, -qtyBase); err != nil {
		return nil, err
	}
	return allocations, nil
}

// StockOut removes stock for a reason. Sales of count-dimension items also
// record a cash event sharing the operation's source_id; the sale price falls
// back to the item's list price when the caller sends none.
func StockOut(ctx context.Context, logger *logrus.Logger, input *StockOutRequest) (*StockOutResult, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}
	if !input.Reason.Valid() {
		return nil, ErrInvalidStockOutReason
	}
	sourceKind, err := reasonToSourceKind(input.Reason)
	if err != nil {
		return nil, err
	}
	sourceID := input.SourceID
	if sourceID == nil {
		generated := uuid.New().String()
		sourceID = &generated
	}

	var result *StockOutResult
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := models.GetItemTx(tx, input.ItemID)
		if err != nil {
			return err
		}
		uom := input.Uom
		if uom == "" {
			uom = item.ResolveUom()
		}
		qtyBase, err := models.NormalizeQuantityToBaseInt(item.Dimension, uom, input.QuantityDecimal)
		if err != nil {
			return err
		}
		allocations, err := stockOutTx(tx, item.ID, qtyBase, sourceKind, sourceID)
		if err != nil {
			return err
		}
		item.QtyStoredBase -= qtyBase
		result = &StockOutResult{
			Item:        item,
			QtyBase:     qtyBase,
			Allocations: allocations,
			SourceID:    *sourceID,
		}

		if input.Reason != models.StockOutReasonSold || item.Dimension != models.DimensionCount {
			return nil
		}
		unitPriceCents := item.PriceCents
		if input.UnitPriceCents != nil {
			unitPriceCents = *input.UnitPriceCents
		}
		if unitPriceCents < 0 {
			return models.ErrInvalidUnitCost
		}
		mult, err := models.UomMultiplier(item.Dimension, item.ResolveUom())
		if err != nil {
			return err
		}
		amountCents := decimal.NewFromInt(unitPriceCents).
			Mul(decimal.NewFromInt(qtyBase)).
			DivRound(decimal.NewFromInt(mult), 0).IntPart()
		event := models.CashEvent{
			Kind:           models.CashEventKindSale,
			AmountCents:    amountCents,
			ItemID:         &item.ID,
			QtyBase:        qtyBase,
			UnitPriceCents: unitPriceCents,
			SourceKind:     sourceKind,
			SourceID:       sourceID,
			Notes:          input.Notes,
		}
		if err := models.AddCashEvent(tx, &event); err != nil {
			return err
		}
		result.CashEventID = &event.ID
		return nil
	})
	if err != nil {
		if _, short := models.AsInsufficientStock(err); !short {
			config.LogError(logger, "workflow", "StockOut", "stock-out transaction failed", input, err)
		}
		return nil, err
	}
	return result, nil
}

type PurchaseLine struct {
	ItemID          int64  `json:"item_id" binding:"required"`
	QuantityDecimal string `json:"quantity_decimal" binding:"required"`
	Uom             string `json:"uom"`
	UnitCostCents   int64  `json:"unit_cost_cents"`
}

type PurchaseRequest struct {
	SourceID *string        `json:"source_id"`
	Lines    []PurchaseLine `json:"lines" binding:"required"`
}

type PurchaseResult struct {
	SourceID string          `json:"source_id"`
	Lines    []StockInResult `json:"lines"`
}

// Purchase records a multi-line receipt in one transaction. All lines share
// one source_id so the receipt can be reassembled from the ledger.
func Purchase(ctx context.Context, logger *logrus.Logger, input *PurchaseRequest) (*PurchaseResult, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}
	if len(input.Lines) == 0 {
		return nil, errors.New("purchase requires at least one line")
	}
	sourceID := input.SourceID
	if sourceID == nil {
		generated := uuid.New().String()
		sourceID = &generated
	}

	var result *PurchaseResult
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := make([]StockInResult, 0, len(input.Lines))
		for _, line := range input.Lines {
			if line.UnitCostCents < 0 {
				return models.ErrInvalidUnitCost
			}
			item, err := models.GetItemTx(tx, line.ItemID)
			if err != nil {
				return err
			}
			uom := line.Uom
			if uom == "" {
				uom = item.ResolveUom()
			}
			qtyBase, err := models.NormalizeQuantityToBaseInt(item.Dimension, uom, line.QuantityDecimal)
			if err != nil {
				return err
			}
			batch, movementID, err := stockInTx(tx, item.ID, qtyBase, line.UnitCostCents, models.SourceKindPurchase, sourceID)
			if err != nil {
				return err
			}
			item.QtyStoredBase += qtyBase
			lines = append(lines, StockInResult{
				Item:       item,
				Batch:      batch,
				MovementID: movementID,
				SourceID:   *sourceID,
			})
		}
		result = &PurchaseResult{SourceID: *sourceID, Lines: lines}
		return nil
	})
	if err != nil {
		config.LogError(logger, "workflow", "Purchase", "purchase transaction failed", input, err)
		return nil, err
	}
	return result, nil
}

type AdjustRequest struct {
	ItemID          int64   `json:"item_id" binding:"required"`
	QuantityDecimal string  `json:"quantity_decimal" binding:"required"`
	Uom             string  `json:"uom"`
	UnitCostCents   int64   `json:"unit_cost_cents"`
	SourceID        *string `json:"source_id"`
}

type AdjustResult struct {
	Direction string       `json:"direction"`
	QtyBase   int64        `json:"qty_base"`
	Item      *models.Item `json:"item"`
	SourceID  string       `json:"source_id"`
}

// Adjust reconciles a physical count. A positive quantity books a new
// adjustment batch, a negative one consumes FIFO; zero is rejected because an
// adjustment that changes nothing is a caller mistake.
func Adjust(ctx context.Context, logger *logrus.Logger, input *AdjustRequest) (*AdjustResult, error) {
	db := config.GetDB()
	if db == nil {
		return nil, models.ErrDBNotInitialized
	}

	raw := input.QuantityDecimal
	negative := false
	trimmed := raw
	for len(trimmed) > 0 && (trimmed[0] == ' ' || trimmed[0] == '\t') {
		trimmed = trimmed[1:]
	}
	if len(trimmed) > 0 && trimmed[0] == '-' {
		negative = true
		raw = trimmed[1:]
	}

	if negative {
		out, err := StockOut(ctx, logger, &StockOutRequest{
			ItemID:          input.ItemID,
			QuantityDecimal: raw,
			Uom:             input.Uom,
			Reason:          models.StockOutReasonAdjustment,
			SourceID:        input.SourceID,
		})
		if err != nil {
			return nil, err
		}
		return &AdjustResult{
			Direction: "out",
			QtyBase:   out.QtyBase,
			Item:      out.Item,
			SourceID:  out.SourceID,
		}, nil
	}

	in, err := StockIn(ctx, logger, &StockInRequest{
		ItemID:          input.ItemID,
		QuantityDecimal: raw,
		Uom:             input.Uom,
		UnitCostCents:   input.UnitCostCents,
		SourceKind:      models.SourceKindAdjustment,
		SourceID:        input.SourceID,
	})
	if err != nil {
		return nil, err
	}
	return &AdjustResult{
		Direction: "in",
		QtyBase:   in.Batch.QtyInitialBase,
		Item:      in.Item,
		SourceID:  in.SourceID,
	}, nil
}
