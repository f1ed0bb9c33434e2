package routes

import (
	"errors"
	"net/http"

	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/True-Good-Craft/TGC-BUS-Core/workflow"
	"github.com/gin-gonic/gin"
)

// apiError is the uniform error body: a stable machine code, a human message
// and optional per-field detail. Internal errors never leak driver or SQL
// text to the client.
type apiError struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Fields  interface{} `json:"fields,omitempty"`
}

func abortWithError(c *gin.Context, err error) {
	var unsupported *models.UnsupportedUnitError
	if errors.As(err, &unsupported) {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   "unsupported_uom",
			Message: unsupported.Error(),
			Fields: gin.H{
				"dimension": unsupported.Dimension,
				"uom":       unsupported.Uom,
			},
		})
		return
	}
	if ise, ok := models.AsInsufficientStock(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_stock",
			"shortages": wireShortages(ise.Shortages),
		})
		return
	}

	switch {
	case errors.Is(err, models.ErrItemNotFound),
		errors.Is(err, models.ErrRecipeNotFound):
		c.JSON(http.StatusNotFound, apiError{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidUnitCost),
		errors.Is(err, models.ErrFractionalBaseQuantity),
		errors.Is(err, models.ErrOutputQuantityMustBePositive),
		errors.Is(err, workflow.ErrInvalidStockOutReason),
		errors.Is(err, workflow.ErrRecipeArchived),
		errors.Is(err, workflow.ErrRunTargetRequired),
		errors.Is(err, workflow.ErrRunTargetAmbiguous),
		errors.Is(err, workflow.ErrRunComponentsRequired):
		c.JSON(http.StatusBadRequest, apiError{Error: err.Error()})
	default:
		// Surface the real error to the logging middleware; the client only
		// sees the generic body.
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apiError{
			Error:   "internal_error",
			Message: "the operation could not be completed",
		})
	}
}

// wireShortage keys the deficit by "component" on the wire.
type wireShortage struct {
	Component int64 `json:"component"`
	Required  int64 `json:"required"`
	Available int64 `json:"available"`
}

func wireShortages(shortages []models.Shortage) []wireShortage {
	out := make([]wireShortage, 0, len(shortages))
	for _, s := range shortages {
		out = append(out, wireShortage{
			Component: s.ItemID,
			Required:  s.RequiredBase,
			Available: s.AvailableBase,
		})
	}
	return out
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, apiError{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}
