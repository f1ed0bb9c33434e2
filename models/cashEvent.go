package models

import (
	"time"

	"gorm.io/gorm"
)

// CashEvent is the financial side of a stock operation. It shares the
// operation's SourceID with every ledger movement the operation produced, so
// inventory and cash can always be correlated after the fact.
type CashEvent struct {
	ID             int64         `gorm:"primary_key" json:"id"`
	Kind           CashEventKind `gorm:"size:20;not null" json:"kind"`
	AmountCents    int64         `gorm:"not null" json:"amount_cents"`
	ItemID         *int64        `gorm:"index" json:"item_id"`
	QtyBase        int64         `gorm:"not null;default:0" json:"qty_base"`
	UnitPriceCents int64         `gorm:"not null;default:0" json:"unit_price_cents"`
	SourceKind     SourceKind    `gorm:"size:20;not null" json:"source_kind"`
	SourceID       *string       `gorm:"size:64;index" json:"source_id"`
	Notes          *string       `gorm:"type:text" json:"notes"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

func AddCashEvent(tx *gorm.DB, event *CashEvent) error {
	return tx.Create(event).Error
}
