package recipe

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	recipeCore "recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/infrastructure/selection"
	"recipe-aggregator/internal/pkg/common"
)

// IngredientsResponse 食材目錄
type IngredientsResponse struct {
	Ingredients []recipeCore.CatalogEntry `json:"ingredients"`
}

// HandleIngredients 列出食材目錄，可用 category 篩選
func (h *Handler) HandleIngredients(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	entries := h.catalog.Entries()
	if category != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if strings.EqualFold(e.Category, category) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	c.JSON(http.StatusOK, IngredientsResponse{Ingredients: entries})
}

// SelectionRequest 保存食材選擇
type SelectionRequest struct {
	Ingredients []string `json:"ingredients"`
}

// HandleGetSelection 讀取保存的食材選擇
func (h *Handler) HandleGetSelection(c *gin.Context) {
	if h.selections == nil {
		h.respondError(c, "食材選擇儲存未啟用", common.ErrServiceUnavailable)
		return
	}
	sel, err := selection.LoadIngredients(c.Request.Context(), h.selections, c.Param("key"))
	if err != nil {
		h.respondError(c, "讀取食材選擇失敗", err)
		return
	}
	c.JSON(http.StatusOK, sel)
}

// HandlePutSelection 保存食材選擇
func (h *Handler) HandlePutSelection(c *gin.Context) {
	if h.selections == nil {
		h.respondError(c, "食材選擇儲存未啟用", common.ErrServiceUnavailable)
		return
	}
	var req SelectionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	sel, err := selection.SaveIngredients(c.Request.Context(), h.selections, c.Param("key"), req.Ingredients)
	if err != nil {
		h.respondError(c, "保存食材選擇失敗", err)
		return
	}
	c.JSON(http.StatusOK, sel)
}
