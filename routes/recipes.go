package routes

import (
	"net/http"
	"strconv"

	"github.com/True-Good-Craft/TGC-BUS-Core/models"
	"github.com/gin-gonic/gin"
)

func createRecipe(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	var input models.NewRecipe
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	recipe, err := models.CreateRecipe(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func updateRecipe(c *gin.Context) {
	if _, handled := readBodyRejectingLegacyKeys(c); handled {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}
	var input models.NewRecipe
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	recipe, err := models.UpdateRecipe(c.Request.Context(), id, &input)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func getRecipe(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}
	recipe, err := models.GetRecipe(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func listRecipes(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "1"
	recipes, err := models.GetRecipes(c.Request.Context(), includeArchived)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

type archiveRecipeRequest struct {
	Archived *bool `json:"archived" binding:"required"`
}

func archiveRecipe(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, err)
		return
	}
	var input archiveRecipeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	recipe, err := models.ArchiveRecipe(c.Request.Context(), id, *input.Archived)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}
