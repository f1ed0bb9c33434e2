package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/True-Good-Craft/TGC-BUS-Core/config"
	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/True-Good-Craft/TGC-BUS-Core/models/reports"
	"github.com/True-Good-Craft/TGC-BUS-Core/workflow"
	"github.com/gin-gonic/gin"
)

func stockIn(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	var input workflow.StockInRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	result, err := workflow.StockIn(c.Request.Context(), config.GetLogger(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func stockOut(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	var input workflow.StockOutRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	result, err := workflow.StockOut(c.Request.Context(), config.GetLogger(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func purchase(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	var input workflow.PurchaseRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	result, err := workflow.Purchase(c.Request.Context(), config.GetLogger(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func adjustLedger(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	var input workflow.AdjustRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	result, err := workflow.Adjust(c.Request.Context(), config.GetLogger(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func parseItemIDQuery(c *gin.Context) (*int64, error) {
	raw := c.Query("item_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func ledgerHistory(c *gin.Context) {
	itemID, err := parseItemIDQuery(c)
	if err != nil {
		bindError(c, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			bindError(c, err)
			return
		}
	}
	includeBase := c.Query("include_base") == "1"

	entries, err := models.LedgerHistory(c.Request.Context(), itemID, limit, includeBase)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func ledgerValuation(c *gin.Context) {
	itemID, err := parseItemIDQuery(c)
	if err != nil {
		bindError(c, err)
		return
	}
	db := config.GetDB()
	if db == nil {
		abortWithError(c, models.ErrDBNotInitialized)
		return
	}
	rows, err := workflow.ValuationCents(db.WithContext(c.Request.Context()), itemID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

const reportDateLayout = "2006-01-02"

func stockSummaryReport(c *gin.Context) {
	fromDate := time.Time{}
	toDate := time.Now().UTC()
	var err error
	if raw := c.Query("from"); raw != "" {
		fromDate, err = time.Parse(reportDateLayout, raw)
		if err != nil {
			bindError(c, err)
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		toDate, err = time.Parse(reportDateLayout, raw)
		if err != nil {
			bindError(c, err)
			return
		}
		// Window end is inclusive of the named day.
		toDate = toDate.Add(24*time.Hour - time.Nanosecond)
	}

	rows, err := reports.GetStockSummaryReport(c.Request.Context(), fromDate, toDate)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
