package models

import (
	"github.com/True-Good-Craft/TGC-BUS-Core/config"
)

// MigrateTable creates/updates every table. Order matters only for
// readability; sqlite foreign keys are declared but not enforced by
// automigrate.
func MigrateTable() error {
	db := config.GetDB()
	if db == nil {
		return ErrDBNotInitialized
	}
	return db.AutoMigrate(
		&Item{},
		&ItemBatch{},
		&ItemMovement{},
		&CashEvent{},
		&Recipe{},
		&RecipeItem{},
		&ManufacturingRun{},
	)
}
