package spoonacular

import (
	"regexp"
	"strconv"
	"strings"

	"recipe-aggregator/internal/core/recipe"
)

// 來源回應格式，只保留需要的欄位

type searchResponse struct {
	Results      []recipeInfo `json:"results"`
	TotalResults int          `json:"totalResults"`
}

type recipeInfo struct {
	ID                  int64           `json:"id"`
	Title               string          `json:"title"`
	Image               string          `json:"image"`
	ReadyInMinutes      int             `json:"readyInMinutes"`
	Servings            int             `json:"servings"`
	PricePerServing     float64         `json:"pricePerServing"`
	Cuisines            []string        `json:"cuisines"`
	Diets               []string        `json:"diets"`
	DishTypes           []string        `json:"dishTypes"`
	ExtendedIngredients []ingredientRaw `json:"extendedIngredients"`
	Instructions        string          `json:"instructions"`
	Summary             string          `json:"summary"`
	Nutrition           *nutritionRaw   `json:"nutrition"`
}

type ingredientRaw struct {
	Name     string  `json:"name"`
	Original string  `json:"original"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

type nutritionRaw struct {
	Nutrients []struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
		Unit   string  `json:"unit"`
	} `json:"nutrients"`
}

type byIngredientsItem struct {
	ID                int64           `json:"id"`
	Title             string          `json:"title"`
	Image             string          `json:"image"`
	UsedIngredients   []ingredientRaw `json:"usedIngredients"`
	MissedIngredients []ingredientRaw `json:"missedIngredients"`
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// stripHTML 移除摘要與步驟中的 HTML 標籤
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTag.ReplaceAllString(s, ""))
}

func mapIngredient(in ingredientRaw) recipe.IngredientLine {
	raw := strings.TrimSpace(in.Original)
	if raw == "" {
		raw = strings.TrimSpace(in.Name)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return recipe.ParseIngredientLine(raw)
	}
	return recipe.IngredientLine{
		RawText: raw,
		Name:    name,
		Amount:  in.Amount,
		Unit:    recipe.NormalizeUnit(in.Unit),
	}
}

func mapNutrition(n *nutritionRaw) *recipe.Nutrition {
	if n == nil || len(n.Nutrients) == 0 {
		return nil
	}
	out := &recipe.Nutrition{}
	for _, item := range n.Nutrients {
		switch strings.ToLower(item.Name) {
		case "calories":
			out.Calories = item.Amount
		case "protein":
			out.ProteinG = item.Amount
		case "carbohydrates":
			out.CarbsG = item.Amount
		case "fat":
			out.FatG = item.Amount
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// mapRecipe 來源的 pricePerServing 已經是美分
func mapRecipe(in recipeInfo) recipe.Recipe {
	r := recipe.Recipe{
		ID:                   strconv.FormatInt(in.ID, 10),
		SourceTier:           recipe.TierPaid,
		Title:                strings.TrimSpace(in.Title),
		ImageURL:             in.Image,
		ReadyMinutes:         in.ReadyInMinutes,
		Servings:             in.Servings,
		PricePerServingCents: in.PricePerServing,
		Cuisines:             nonNil(in.Cuisines),
		Diets:                nonNil(in.Diets),
		DishTypes:            nonNil(in.DishTypes),
		Instructions:         stripHTML(in.Instructions),
		Summary:              stripHTML(in.Summary),
		Nutrition:            mapNutrition(in.Nutrition),
	}
	for _, ing := range in.ExtendedIngredients {
		r.Ingredients = append(r.Ingredients, mapIngredient(ing))
	}
	return r
}

func mapByIngredients(in byIngredientsItem) recipe.Recipe {
	r := recipe.Recipe{
		ID:         strconv.FormatInt(in.ID, 10),
		SourceTier: recipe.TierPaid,
		Title:      strings.TrimSpace(in.Title),
		ImageURL:   in.Image,
		Cuisines:   []string{},
		Diets:      []string{},
		DishTypes:  []string{},
	}
	for _, ing := range in.UsedIngredients {
		r.Ingredients = append(r.Ingredients, mapIngredient(ing))
	}
	for _, ing := range in.MissedIngredients {
		r.Ingredients = append(r.Ingredients, mapIngredient(ing))
	}
	return r
}
