package mealdb

import (
	"fmt"
	"strings"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/pkg/common"
)

// mealsResponse 來源回應；查無資料時 meals 為 null
type mealsResponse struct {
	Meals []map[string]interface{} `json:"meals"`
}

// mapMeal 將來源格式轉為 recipe.Recipe；列表端點只有 id、名稱與圖片
func mapMeal(m map[string]interface{}) (recipe.Recipe, bool) {
	id := common.StringField(m, "idMeal")
	title := common.StringField(m, "strMeal")
	if id == "" || title == "" {
		return recipe.Recipe{}, false
	}

	r := recipe.Recipe{
		ID:           id,
		SourceTier:   recipe.TierFree,
		Title:        title,
		ImageURL:     common.StringField(m, "strMealThumb"),
		Instructions: common.StringField(m, "strInstructions"),
		Cuisines:     []string{},
		Diets:        []string{},
		DishTypes:    []string{},
	}

	if area := common.StringField(m, "strArea"); area != "" && !strings.EqualFold(area, "Unknown") {
		r.Cuisines = append(r.Cuisines, area)
	}
	if category := common.StringField(m, "strCategory"); category != "" {
		r.DishTypes = append(r.DishTypes, category)
		switch strings.ToLower(category) {
		case "vegan":
			r.Diets = append(r.Diets, "vegan", "vegetarian")
		case "vegetarian":
			r.Diets = append(r.Diets, "vegetarian")
		}
	}
	for _, tag := range strings.Split(common.StringField(m, "strTags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" && !common.ContainsFold(r.DishTypes, tag) {
			r.DishTypes = append(r.DishTypes, tag)
		}
	}

	for i := 1; i <= maxIngredientFields; i++ {
		name := common.StringField(m, fmt.Sprintf("strIngredient%d", i))
		if name == "" {
			continue
		}
		measure := common.StringField(m, fmt.Sprintf("strMeasure%d", i))
		r.Ingredients = append(r.Ingredients, recipe.NewIngredientLine(name, measure))
	}

	return r, true
}
