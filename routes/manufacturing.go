package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/True-Good-Craft/TGC-BUS-Core/workflow"
	"github.com/gin-gonic/gin"
)

// bindRunRequest enforces the manufacture payload contract before binding:
// exactly one run per request (bulk arrays rejected) and no legacy quantity
// keys anywhere in the document.
func bindRunRequest(c *gin.Context) (*workflow.RunRequest, bool) {
	body, handled := readBodyRejectingLegacyKeys(c)
	if handled {
		return nil, false
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		c.JSON(http.StatusBadRequest, apiError{
			Error:   "invalid_request",
			Message: "single run only: bulk arrays are not accepted",
		})
		return nil, false
	}
	var input workflow.RunRequest
	if err := json.Unmarshal(body, &input); err != nil {
		bindError(c, err)
		return nil, false
	}
	return &input, true
}

func manufacture(c *gin.Context) {
	input, ok := bindRunRequest(c)
	if !ok {
		return
	}
	result, err := workflow.ExecuteRun(c.Request.Context(), config.GetLogger(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if result.Run.Status == models.RunStatusFailedShortage {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_stock",
			"shortages": wireShortages(result.Shortages),
			"run_id":    result.Run.ID,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":   result.Run.Status,
		"run_id":   result.Run.ID,
		"output":   result.Output,
		"consumed": result.Consumed,
		"run":      result.Run,
	})
}

func validateManufacture(c *gin.Context) {
	input, ok := bindRunRequest(c)
	if !ok {
		return
	}
	plan, err := workflow.ValidateRun(c.Request.Context(), input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	status := "ok"
	if plan.HasShortage() {
		status = "insufficient_stock"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"plan":      plan,
		"shortages": wireShortages(plan.Shortages),
	})
}

func listManufacturingRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			bindError(c, err)
			return
		}
		limit = parsed
	}
	runs, err := models.GetManufacturingRuns(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}
