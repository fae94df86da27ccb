package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recipe-aggregator/internal/core/recipe"
)

// RecipeModel 食譜資料表
type RecipeModel struct {
	ID                   string          `gorm:"primaryKey;type:varchar(36)"`
	ImportedFrom         string          `gorm:"type:varchar(16);not null;uniqueIndex:idx_recipe_source"`
	SourceID             string          `gorm:"type:varchar(128);not null;uniqueIndex:idx_recipe_source"`
	Title                string          `gorm:"type:varchar(255);not null;index"`
	ImageURL             string          `gorm:"type:text"`
	ReadyMinutes         int             `gorm:"not null;default:0"`
	Servings             int             `gorm:"not null;default:0"`
	PricePerServingCents float64         `gorm:"not null;default:0"`
	Cuisines             StringSlice     `gorm:"type:text"`
	Diets                StringSlice     `gorm:"type:text"`
	DishTypes            StringSlice     `gorm:"type:text"`
	Ingredients          IngredientLines `gorm:"type:text"`
	IngredientText       string          `gorm:"type:text"`
	Instructions         string          `gorm:"type:text"`
	Summary              string          `gorm:"type:text"`
	Nutrition            *NutritionField `gorm:"type:text"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName 資料表名稱
func (RecipeModel) TableName() string {
	return "recipes"
}

// StringSlice 以 JSON 儲存的字串陣列
type StringSlice []string

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
}

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// IngredientLines 以 JSON 儲存的食材行
type IngredientLines []recipe.IngredientLine

// Scan implements the sql.Scanner interface
func (l *IngredientLines) Scan(value interface{}) error {
	if value == nil {
		*l = IngredientLines{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into IngredientLines", value)
	}
}

// Value implements the driver.Valuer interface
func (l IngredientLines) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// NutritionField 以 JSON 儲存的營養資訊
type NutritionField recipe.Nutrition

// Scan implements the sql.Scanner interface
func (n *NutritionField) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, n)
	case string:
		return json.Unmarshal([]byte(v), n)
	default:
		return fmt.Errorf("cannot scan %T into NutritionField", value)
	}
}

// Value implements the driver.Valuer interface
func (n NutritionField) Value() (driver.Value, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// toModel 轉為資料表結構；內部來源的食譜以自身 id 作為 source id
func toModel(r *recipe.Recipe) *RecipeModel {
	importedFrom := r.ImportedFrom
	if importedFrom == "" {
		importedFrom = r.SourceTier
	}
	if importedFrom == "" {
		importedFrom = recipe.TierInternal
	}

	m := &RecipeModel{
		ID:                   r.StoreKey,
		ImportedFrom:         string(importedFrom),
		SourceID:             r.ID,
		Title:                strings.TrimSpace(r.Title),
		ImageURL:             r.ImageURL,
		ReadyMinutes:         r.ReadyMinutes,
		Servings:             r.Servings,
		PricePerServingCents: r.PricePerServingCents,
		Cuisines:             StringSlice(r.Cuisines),
		Diets:                StringSlice(r.Diets),
		DishTypes:            StringSlice(r.DishTypes),
		Ingredients:          IngredientLines(r.Ingredients),
		IngredientText:       r.IngredientText(),
		Instructions:         r.Instructions,
		Summary:              r.Summary,
		CreatedAt:            r.CreatedAt,
	}
	if r.Nutrition != nil {
		n := NutritionField(*r.Nutrition)
		m.Nutrition = &n
	}
	return m
}

// toRecipe 從資料表讀出的食譜一律屬於內部層級，id 為資料庫鍵
func (m *RecipeModel) toRecipe() recipe.Recipe {
	r := recipe.Recipe{
		ID:                   m.ID,
		SourceTier:           recipe.TierInternal,
		Title:                m.Title,
		ImageURL:             m.ImageURL,
		ReadyMinutes:         m.ReadyMinutes,
		Servings:             m.Servings,
		PricePerServingCents: m.PricePerServingCents,
		Cuisines:             []string(m.Cuisines),
		Diets:                []string(m.Diets),
		DishTypes:            []string(m.DishTypes),
		Ingredients:          []recipe.IngredientLine(m.Ingredients),
		Instructions:         m.Instructions,
		Summary:              m.Summary,
		StoreKey:             m.ID,
		ImportedFrom:         recipe.Tier(m.ImportedFrom),
		CreatedAt:            m.CreatedAt,
	}
	if m.Nutrition != nil {
		n := recipe.Nutrition(*m.Nutrition)
		r.Nutrition = &n
	}
	return r
}
