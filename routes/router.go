package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register wires the whole REST surface onto the engine.
func Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/items", createItem)
	r.GET("/items", listItems)
	r.GET("/items/:id", getItem)

	r.POST("/recipes", createRecipe)
	r.GET("/recipes", listRecipes)
	r.GET("/recipes/:id", getRecipe)
	r.PUT("/recipes/:id", updateRecipe)
	r.POST("/recipes/:id/archive", archiveRecipe)

	r.POST("/stock/in", stockIn)
	r.POST("/stock/out", stockOut)
	r.POST("/purchase", purchase)

	r.GET("/ledger/history", ledgerHistory)
	r.GET("/ledger/valuation", ledgerValuation)
	r.POST("/ledger/adjust", adjustLedger)

	r.POST("/manufacture", manufacture)
	r.POST("/manufacture/validate", validateManufacture)
	r.GET("/manufacturing/runs", listManufacturingRuns)

	r.GET("/units/normalize", normalizeUnits)

	r.GET("/reports/stock-summary", stockSummaryReport)
}
