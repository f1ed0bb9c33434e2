package models

import (
	"context"
	"time"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemMovement is one row of the append-only inventory ledger. Movements are
// never edited or deleted; the signed sum of QtyChangeBase for an item equals
// that item's on-hand cache. UnitCostCents is copied verbatim from the batch
// the movement touched. Every movement of one logical operation shares one
// SourceID, which also correlates any cash event of that operation.
type ItemMovement struct {
	ID            int64      `gorm:"primary_key" json:"id"`
	ItemID        int64      `gorm:"index;not null" json:"item_id"`
	BatchID       *int64     `gorm:"index" json:"batch_id"`
	QtyChangeBase int64      `gorm:"not null" json:"qty_change_base"`
	UnitCostCents int64      `gorm:"not null;default:0" json:"unit_cost_cents"`
	SourceKind    SourceKind `gorm:"size:20;not null;index" json:"source_kind"`
	SourceID      *string    `gorm:"size:64;index" json:"source_id"`
	IsOversold    bool       `gorm:"not null;default:false" json:"is_oversold"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// AppendMovement writes one ledger row inside the caller's transaction.
// This is the only mutation the ledger supports.
func AppendMovement(tx *gorm.DB, movement *ItemMovement) (int64, error) {
	if err := tx.Create(movement).Error; err != nil {
		return 0, err
	}
	return movement.ID, nil
}

// LedgerEntry is the read-side view of a movement. Quantities are
// human-readable by default; QtyChangeBase appears only when the caller asks
// for base units (audit tooling).
type LedgerEntry struct {
	ID              int64      `json:"id"`
	ItemID          int64      `json:"item_id"`
	BatchID         *int64     `json:"batch_id"`
	QuantityDecimal string     `json:"quantity_decimal"`
	Uom             string     `json:"uom"`
	UnitCostCents   int64      `json:"unit_cost_cents"`
	SourceKind      SourceKind `json:"source_kind"`
	SourceID        *string    `json:"source_id"`
	IsOversold      bool       `json:"is_oversold"`
	CreatedAt       time.Time  `json:"created_at"`
	QtyChangeBase   *int64     `json:"qty_change_base,omitempty"`
}

func decimalString(value decimal.Decimal) string {
	text := value.String()
	switch text {
	case "-0", "-0.0", "-0.00":
		return "0"
	}
	return text
}

// LedgerHistory returns movements most recent first, optionally filtered by
// item. includeBase opts in to raw base integers.
func LedgerHistory(ctx context.Context, itemID *int64, limit int, includeBase bool) ([]LedgerEntry, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}

	q := db.WithContext(ctx).Model(&ItemMovement{})
	if itemID != nil {
		q = q.Where("item_id = ?", *itemID)
	}
	var rows []ItemMovement
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	if dev, ok := utils.GetDevModeFromContext(ctx); ok && dev {
		includeBase = true
	}

	itemCache := map[int64]*Item{}
	entries := make([]LedgerEntry, 0, len(rows))
	for _, m := range rows {
		item, seen := itemCache[m.ItemID]
		if !seen {
			it, err := GetItemTx(db.WithContext(ctx), m.ItemID)
			if err != nil && err != ErrItemNotFound {
				return nil, err
			}
			item = it
			itemCache[m.ItemID] = item
		}

		var uom string
		var qtyDec decimal.Decimal
		if item != nil {
			uom = item.ResolveUom()
			abs := m.QtyChangeBase
			if abs < 0 {
				abs = -abs
			}
			d, err := FromBase(abs, uom, item.Dimension)
			if err != nil {
				return nil, err
			}
			qtyDec = d
		} else {
			// Orphan movement: fall back to raw base units as milli-count.
			uom = "mc"
			abs := m.QtyChangeBase
			if abs < 0 {
				abs = -abs
			}
			qtyDec = decimal.New(abs, 0)
		}
		if m.QtyChangeBase < 0 {
			qtyDec = qtyDec.Neg()
		}

		entry := LedgerEntry{
			ID:              m.ID,
			ItemID:          m.ItemID,
			BatchID:         m.BatchID,
			QuantityDecimal: decimalString(qtyDec),
			Uom:             uom,
			UnitCostCents:   m.UnitCostCents,
			SourceKind:      m.SourceKind,
			SourceID:        m.SourceID,
			IsOversold:      m.IsOversold,
			CreatedAt:       m.CreatedAt,
		}
		if includeBase {
			qb := m.QtyChangeBase
			entry.QtyChangeBase = &qb
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MovementSum is the signed base-unit total of all movements for an item.
// Integrity checks compare it against Item.QtyStoredBase.
func MovementSum(tx *gorm.DB, itemID int64) (int64, error) {
	var total int64
	err := tx.Model(&ItemMovement{}).
		Where("item_id = ?", itemID).
		Select("COALESCE(SUM(qty_change_base), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
