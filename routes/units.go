package routes

import (
	"net/http"

	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/gin-gonic/gin"
)

// normalizeUnits is the audit-side conversion endpoint: it shows exactly how
// a wire quantity or unit cost lands in base units, without touching stock.
func normalizeUnits(c *gin.Context) {
	dimension := models.NormDimension(c.Query("dimension"))
	if !dimension.Valid() {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   "invalid_dimension",
			Message: "dimension must be one of count, length, area, volume, weight",
		})
		return
	}
	uom := c.Query("uom")
	if uom == "" {
		uom = models.DefaultUnitFor(dimension)
	}

	quantityDecimal := c.Query("quantity_decimal")
	unitCostDecimal := c.Query("unit_cost_decimal")
	if quantityDecimal == "" && unitCostDecimal == "" {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   "invalid_request",
			Message: "provide quantity_decimal, unit_cost_decimal or both",
		})
		return
	}

	body := gin.H{
		"dimension": dimension,
		"uom":       models.NormUnit(uom),
	}
	if quantityDecimal != "" {
		qtyBase, err := models.NormalizeQuantityToBaseInt(dimension, uom, quantityDecimal)
		if err != nil {
			abortWithError(c, err)
			return
		}
		body["qty_base"] = qtyBase
	}
	if unitCostDecimal != "" {
		costCents, err := models.NormalizeCostToBaseCents(dimension, uom, unitCostDecimal)
		if err != nil {
			abortWithError(c, err)
			return
		}
		body["cost_cents_per_base"] = costCents
	}
	c.JSON(http.StatusOK, body)
}
