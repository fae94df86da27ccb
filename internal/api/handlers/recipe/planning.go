package recipe

import (
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recipe-aggregator/internal/core/planner"
	recipeCore "recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// ShoppingListRequest 由菜單計算購物清單
type ShoppingListRequest struct {
	Items []recipeCore.MealPlanItem `json:"items"`
}

// HandleShoppingList 計算購物清單
func (h *Handler) HandleShoppingList(c *gin.Context) {
	var req ShoppingListRequest
	if !h.bindJSON(c, &req) {
		return
	}

	list, err := h.aggregator.Build(req.Items)
	if err != nil {
		h.respondError(c, "購物清單計算失敗", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HandleGenerateMealPlan 自動產生菜單
func (h *Handler) HandleGenerateMealPlan(c *gin.Context) {
	if h.planner == nil {
		h.respondError(c, "菜單產生器未啟用", common.ErrServiceUnavailable)
		return
	}

	var req planner.Request
	if !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.planner.Generate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, "菜單產生失敗", err)
		return
	}

	common.LogInfo("菜單產生完成",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("items", len(plan.Items)),
		zap.Int("empty_slots", len(plan.EmptySlots)),
	)
	c.JSON(http.StatusOK, plan)
}
