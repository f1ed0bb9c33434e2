package models

import (
	"context"
	"errors"
	"time"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"gorm.io/gorm"
)

// Item is a catalog entry. QtyStoredBase is a denormalized on-hand cache in
// base units; it must always equal the sum of non-exhausted batch remainders
// and is mutated only by the workflow package, never directly.
type Item struct {
	ID            int64     `gorm:"primary_key" json:"id"`
	Name          string    `gorm:"size:200;not null;index" json:"name" binding:"required"`
	Sku           string    `gorm:"size:100;index" json:"sku"`
	Dimension     Dimension `gorm:"size:10;not null;default:'count'" json:"dimension"`
	Uom           string    `gorm:"size:10;not null;default:'ea'" json:"uom"`
	PriceCents    int64     `gorm:"not null;default:0" json:"price_cents"`
	QtyStoredBase int64     `gorm:"not null;default:0" json:"qty_stored_base"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name       string    `json:"name" binding:"required"`
	Sku        string    `json:"sku"`
	Dimension  Dimension `json:"dimension"`
	Uom        string    `json:"uom"`
	PriceCents int64     `json:"price_cents"`
}

func (input *NewItem) validate() error {
	if input.Dimension == "" {
		input.Dimension = DimensionCount
	}
	if !input.Dimension.Valid() {
		return &UnsupportedUnitError{Dimension: input.Dimension, Uom: input.Uom}
	}
	if input.Uom == "" {
		input.Uom = DefaultUnitFor(input.Dimension)
	}
	input.Uom = NormUnit(input.Uom)
	if !ValidUnitFor(input.Dimension, input.Uom) {
		return &UnsupportedUnitError{Dimension: input.Dimension, Uom: input.Uom}
	}
	if input.PriceCents < 0 {
		return errors.New("price_cents must not be negative")
	}
	return nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	item := Item{
		Name:       input.Name,
		Sku:        input.Sku,
		Dimension:  input.Dimension,
		Uom:        input.Uom,
		PriceCents: input.PriceCents,
	}

	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	if err := db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func GetItem(ctx context.Context, id int64) (*Item, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	return getItemTx(db.WithContext(ctx), id)
}

// GetItemTx reads an item within the caller's transaction.
func GetItemTx(tx *gorm.DB, id int64) (*Item, error) {
	return getItemTx(tx, id)
}

func getItemTx(tx *gorm.DB, id int64) (*Item, error) {
	var item Item
	if err := tx.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func GetItems(ctx context.Context, name *string) ([]*Item, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	var results []*Item
	dbCtx := db.WithContext(ctx)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveUom returns the item's configured uom when legal for its dimension,
// otherwise the dimension default.
func (it *Item) ResolveUom() string {
	uom := NormUnit(it.Uom)
	if uom != "" && ValidUnitFor(it.Dimension, uom) {
		return uom
	}
	return DefaultUnitFor(it.Dimension)
}
