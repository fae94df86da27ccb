package recipe

import (
	"fmt"
	"strings"
	"time"

	"recipe-aggregator/internal/pkg/common"
)

// Tier 食譜來源層級，依成本由低到高排序
type Tier string

const (
	TierInternal Tier = "internal"
	TierFree     Tier = "free"
	TierPaid     Tier = "paid"
)

// AllTiers 依呼叫順序排列的所有層級
var AllTiers = []Tier{TierInternal, TierFree, TierPaid}

// Valid 檢查層級是否合法
func (t Tier) Valid() bool {
	switch t {
	case TierInternal, TierFree, TierPaid:
		return true
	}
	return false
}

// Rank 層級成本排序值
func (t Tier) Rank() int {
	for i, tier := range AllTiers {
		if tier == t {
			return i
		}
	}
	return len(AllTiers)
}

// ParseTier 解析層級字串
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", common.NewValidationError(fmt.Sprintf("unknown tier %q", s))
	}
	return t, nil
}

// Nutrition 營養資訊，缺少時為零值
type Nutrition struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// IngredientLine 食材行，Amount 以食譜宣告的份數為基準
type IngredientLine struct {
	RawText string  `json:"raw_text"`
	Name    string  `json:"name"`
	Amount  float64 `json:"amount"`
	Unit    string  `json:"unit"`
}

// Recipe 統一的食譜結構
type Recipe struct {
	ID                   string           `json:"id"`
	SourceTier           Tier             `json:"source_tier"`
	Title                string           `json:"title"`
	ImageURL             string           `json:"image_url,omitempty"`
	ReadyMinutes         int              `json:"ready_minutes,omitempty"`
	Servings             int              `json:"servings,omitempty"`
	PricePerServingCents float64          `json:"price_per_serving_cents,omitempty"`
	Cuisines             []string         `json:"cuisines"`
	Diets                []string         `json:"diets"`
	DishTypes            []string         `json:"dish_types"`
	Ingredients          []IngredientLine `json:"ingredients"`
	Instructions         string           `json:"instructions,omitempty"`
	Summary              string           `json:"summary,omitempty"`
	Nutrition            *Nutrition       `json:"nutrition,omitempty"`

	// 寫入內部資料庫後才有的欄位
	StoreKey     string    `json:"store_key,omitempty"`
	ImportedFrom Tier      `json:"imported_from,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// NormalizeTitle 去重用的標題鍵
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// NormalizedTitle 回傳正規化標題
func (r *Recipe) NormalizedTitle() string {
	return NormalizeTitle(r.Title)
}

// IngredientText 所有食材原文串接後轉小寫
func (r *Recipe) IngredientText() string {
	parts := make([]string, 0, len(r.Ingredients))
	for _, line := range r.Ingredients {
		text := line.RawText
		if text == "" {
			text = line.Name
		}
		parts = append(parts, text)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// HasIngredients 是否已有完整食材清單
func (r *Recipe) HasIngredients() bool {
	return len(r.Ingredients) > 0
}

// Query 搜尋條件：自由文字或食材清單
type Query struct {
	Text        string   `json:"text,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
}

// IsIngredientQuery 是否為食材搜尋
func (q Query) IsIngredientQuery() bool {
	return len(q.Ingredients) > 0
}

// IsEmpty 沒有任何搜尋條件
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == "" && len(q.Ingredients) == 0
}

// Sort 排序方式
type Sort string

const (
	SortNone       Sort = ""
	SortTime       Sort = "time"
	SortPrice      Sort = "price"
	SortTitle      Sort = "title"
	SortPopularity Sort = "popularity"
)

// SearchFilters 搜尋過濾條件，零值代表不限制
type SearchFilters struct {
	DietTags        []string `json:"diet_tags,omitempty"`
	Type            string   `json:"type,omitempty"`
	Cuisine         string   `json:"cuisine,omitempty"`
	MaxPriceCents   float64  `json:"max_price_cents,omitempty"`
	MaxReadyMinutes int      `json:"max_ready_minutes,omitempty"`
	Sort            Sort     `json:"sort,omitempty"`
}

// Validate 驗證過濾條件
func (f SearchFilters) Validate() error {
	switch f.Sort {
	case SortNone, SortTime, SortPrice, SortTitle, SortPopularity:
	default:
		return common.NewValidationError(fmt.Sprintf("unknown sort %q", f.Sort))
	}
	if f.MaxPriceCents < 0 {
		return common.NewValidationError("max_price_cents must not be negative")
	}
	if f.MaxReadyMinutes < 0 {
		return common.NewValidationError("max_ready_minutes must not be negative")
	}
	return nil
}

// Matches 事後過濾；來源未提供的欄位（零值）視為符合
func (f SearchFilters) Matches(r *Recipe) bool {
	for _, tag := range f.DietTags {
		if len(r.Diets) > 0 && !common.ContainsFold(r.Diets, tag) {
			return false
		}
	}
	if f.Type != "" && len(r.DishTypes) > 0 && !common.ContainsFold(r.DishTypes, f.Type) {
		return false
	}
	if f.Cuisine != "" && len(r.Cuisines) > 0 && !common.ContainsFold(r.Cuisines, f.Cuisine) {
		return false
	}
	if f.MaxPriceCents > 0 && r.PricePerServingCents > 0 && r.PricePerServingCents > f.MaxPriceCents {
		return false
	}
	if f.MaxReadyMinutes > 0 && r.ReadyMinutes > 0 && r.ReadyMinutes > f.MaxReadyMinutes {
		return false
	}
	return true
}

// Day 星期
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
	Saturday  Day = "Saturday"
	Sunday    Day = "Sunday"
)

// Week 從星期一開始的一週
var Week = []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Valid 檢查星期是否合法
func (d Day) Valid() bool {
	for _, day := range Week {
		if day == d {
			return true
		}
	}
	return false
}

// MealType 餐別
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

// Valid 檢查餐別是否合法
func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// MealPlanItem 菜單中的一餐
type MealPlanItem struct {
	Day       Day       `json:"day"`
	MealType  MealType  `json:"meal_type"`
	Recipe    Recipe    `json:"recipe"`
	Portions  int       `json:"portions"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate 驗證菜單項目結構
func (i MealPlanItem) Validate() error {
	if !i.Day.Valid() {
		return common.NewValidationError(fmt.Sprintf("unknown day %q", i.Day))
	}
	if !i.MealType.Valid() {
		return common.NewValidationError(fmt.Sprintf("unknown meal type %q", i.MealType))
	}
	if i.Portions < 1 {
		return common.NewValidationError(fmt.Sprintf("portions must be at least 1, got %d", i.Portions))
	}
	return nil
}

// ShoppingListItem 購物清單項目，由菜單計算而來
type ShoppingListItem struct {
	Name               string  `json:"name"`
	Amount             float64 `json:"amount"`
	Unit               string  `json:"unit"`
	Aisle              string  `json:"aisle"`
	EstimatedCostCents float64 `json:"estimated_cost_cents"`
}
