package models

import (
	"context"
	"errors"
	"time"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"gorm.io/gorm"
)

// Recipe is a named transformation: one output item and quantity plus an
// ordered component list. Updates replace the component list wholesale; a
// recipe is never partially patched.
type Recipe struct {
	ID            int64        `gorm:"primary_key" json:"id"`
	Name          string       `gorm:"size:200;not null;index" json:"name" binding:"required"`
	OutputItemID  int64        `gorm:"index;not null" json:"output_item_id"`
	OutputQtyBase int64        `gorm:"not null" json:"output_qty_base"`
	Archived      bool         `gorm:"not null;default:false" json:"archived"`
	Items         []RecipeItem `gorm:"foreignKey:RecipeID" json:"items"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecipeItem struct {
	ID              int64 `gorm:"primary_key" json:"id"`
	RecipeID        int64 `gorm:"index;not null" json:"recipe_id"`
	ItemID          int64 `gorm:"index;not null" json:"item_id"`
	QtyRequiredBase int64 `gorm:"not null" json:"qty_required_base"`
	IsOptional      bool  `gorm:"not null;default:false" json:"is_optional"`
	SortOrder       int   `gorm:"not null;default:0" json:"sort_order"`
}

// NewRecipeItem carries wire quantities; they normalize against each
// component item's own dimension.
type NewRecipeItem struct {
	ItemID          int64  `json:"item_id" binding:"required"`
	QuantityDecimal string `json:"quantity_decimal" binding:"required"`
	Uom             string `json:"uom" binding:"required"`
	IsOptional      bool   `json:"is_optional"`
}

type NewRecipe struct {
	Name            string          `json:"name" binding:"required"`
	OutputItemID    int64           `json:"output_item_id" binding:"required"`
	QuantityDecimal string          `json:"quantity_decimal" binding:"required"`
	Uom             string          `json:"uom" binding:"required"`
	Items           []NewRecipeItem `json:"items" binding:"required"`
}

func normalizeRecipeItems(tx *gorm.DB, inputs []NewRecipeItem) ([]RecipeItem, error) {
	if len(inputs) == 0 {
		return nil, errors.New("recipe requires at least one component")
	}
	items := make([]RecipeItem, 0, len(inputs))
	for i, in := range inputs {
		item, err := getItemTx(tx, in.ItemID)
		if err != nil {
			return nil, err
		}
		qtyBase, err := NormalizeQuantityToBaseInt(item.Dimension, in.Uom, in.QuantityDecimal)
		if err != nil {
			return nil, err
		}
		items = append(items, RecipeItem{
			ItemID:          in.ItemID,
			QtyRequiredBase: qtyBase,
			IsOptional:      in.IsOptional,
			SortOrder:       i,
		})
	}
	return items, nil
}

func CreateRecipe(ctx context.Context, input *NewRecipe) (*Recipe, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}

	var recipe *Recipe
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		output, err := getItemTx(tx, input.OutputItemID)
		if err != nil {
			return err
		}
		outputQtyBase, err := NormalizeQuantityToBaseInt(output.Dimension, input.Uom, input.QuantityDecimal)
		if err != nil {
			return err
		}
		items, err := normalizeRecipeItems(tx, input.Items)
		if err != nil {
			return err
		}

		recipe = &Recipe{
			Name:          input.Name,
			OutputItemID:  input.OutputItemID,
			OutputQtyBase: outputQtyBase,
			Items:         items,
		}
		return tx.Create(recipe).Error
	})
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

// UpdateRecipe replaces the recipe's fields and its whole component list.
func UpdateRecipe(ctx context.Context, id int64, input *NewRecipe) (*Recipe, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}

	var recipe *Recipe
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := getRecipeTx(tx, id)
		if err != nil {
			return err
		}
		output, err := getItemTx(tx, input.OutputItemID)
		if err != nil {
			return err
		}
		outputQtyBase, err := NormalizeQuantityToBaseInt(output.Dimension, input.Uom, input.QuantityDecimal)
		if err != nil {
			return err
		}
		items, err := normalizeRecipeItems(tx, input.Items)
		if err != nil {
			return err
		}

		if err := tx.Where("recipe_id = ?", existing.ID).Delete(&RecipeItem{}).Error; err != nil {
			return err
		}
		if err := tx.Model(existing).Updates(map[string]interface{}{
			"Name":          input.Name,
			"OutputItemID":  input.OutputItemID,
			"OutputQtyBase": outputQtyBase,
		}).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].RecipeID = existing.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		existing.Items = items
		recipe = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func ArchiveRecipe(ctx context.Context, id int64, archived bool) (*Recipe, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	recipe, err := getRecipeTx(db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(recipe).Update("Archived", archived).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

func GetRecipe(ctx context.Context, id int64) (*Recipe, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	return getRecipeTx(db.WithContext(ctx), id)
}

// GetRecipeTx reads a recipe with its components within the caller's transaction.
func GetRecipeTx(tx *gorm.DB, id int64) (*Recipe, error) {
	return getRecipeTx(tx, id)
}

func getRecipeTx(tx *gorm.DB, id int64) (*Recipe, error) {
	var recipe Recipe
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).First(&recipe, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func GetRecipes(ctx context.Context, includeArchived bool) ([]*Recipe, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	dbCtx := db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	})
	if !includeArchived {
		dbCtx = dbCtx.Where("archived = ?", false)
	}
	var results []*Recipe
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ManufacturingRun is one row per attempted run, success or failure. Failed
// runs are audit records only: zero movements, zero batch mutation.
// CorrelationID is shared by every movement of a completed run.
type ManufacturingRun struct {
	ID                  int64      `gorm:"primary_key" json:"id"`
	RecipeID            *int64     `gorm:"index" json:"recipe_id"`
	OutputItemID        int64      `gorm:"index;not null" json:"output_item_id"`
	OutputQtyBase       int64      `gorm:"not null" json:"output_qty_base"`
	Status              RunStatus  `gorm:"size:30;not null" json:"status"`
	OutputUnitCostCents int64      `gorm:"not null;default:0" json:"output_unit_cost_cents"`
	CorrelationID       string     `gorm:"size:64;index" json:"correlation_id"`
	Notes               *string    `gorm:"type:text" json:"notes"`
	Meta                string     `gorm:"type:text" json:"meta"`
	ExecutedAt          *time.Time `json:"executed_at"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func GetManufacturingRuns(ctx context.Context, limit int) ([]*ManufacturingRun, error) {
	db := config.GetDB()
	if db == nil {
		return nil, ErrDBNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}
	var runs []*ManufacturingRun
	if err := db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
