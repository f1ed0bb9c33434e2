package routes

import (
	"net/http"
	"strconv"

	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/gin-gonic/gin"
)

func createItem(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	var input models.NewItem
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	item, err := models.CreateItem(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func getItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}
	item, err := models.GetItem(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func listItems(c *gin.Context) {
	var name *string
	if q := c.Query("name"); q != "" {
		name = &q
	}
	items, err := models.GetItems(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
