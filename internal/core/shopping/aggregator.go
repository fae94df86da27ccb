// Package shopping 由菜單計算購物清單：依份數縮放、排除常備品、合併同名食材並估算費用
package shopping

import (
	"fmt"
	"sort"
	"strings"

	"recipe-aggregator/internal/core/matcher"
	"recipe-aggregator/internal/core/recipe"
)

// Staples 預設常備品，不會出現在購物清單
var Staples = []string{
	"salt", "sea salt", "kosher salt",
	"black pepper", "ground pepper", "peppercorn", "salt and pepper",
	"olive oil", "vegetable oil", "canola oil", "sunflower oil", "cooking oil", "cooking spray",
	"sugar",
	"water",
	"dried oregano", "dried thyme", "dried basil", "dried parsley", "dried rosemary", "mixed herbs",
	"bay leaf", "bay leaves",
	"ground cumin", "cumin", "paprika", "chili powder", "chilli powder", "cayenne",
	"cinnamon", "nutmeg", "turmeric", "garlic powder", "onion powder", "curry powder",
}

// GenericStaples 單獨出現時才算常備品的泛稱，"bell pepper"、"sesame seeds" 不受影響
var GenericStaples = []string{"pepper", "oil", "herbs", "spices", "seasoning"}

// Group 同一走道的項目
type Group struct {
	Aisle          string                    `json:"aisle"`
	Items          []recipe.ShoppingListItem `json:"items"`
	TotalCostCents float64                   `json:"total_cost_cents"`
}

// List 購物清單
type List struct {
	Items          []recipe.ShoppingListItem `json:"items"`
	Groups         []Group                   `json:"groups"`
	TotalCostCents float64                   `json:"total_cost_cents"`
}

// Aggregator 購物清單計算器
type Aggregator struct {
	catalog *recipe.Catalog
	staples []string
	generic map[string]bool
}

// NewAggregator 建立購物清單計算器；staples 為空時使用 Staples
func NewAggregator(catalog *recipe.Catalog, staples []string) *Aggregator {
	if catalog == nil {
		catalog = recipe.DefaultCatalog()
	}
	if len(staples) == 0 {
		staples = Staples
	}
	normalized := make([]string, 0, len(staples))
	for _, s := range staples {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			normalized = append(normalized, s)
		}
	}
	generic := make(map[string]bool, len(GenericStaples))
	for _, g := range GenericStaples {
		generic[g] = true
	}
	return &Aggregator{catalog: catalog, staples: normalized, generic: generic}
}

// Build 依菜單重新計算完整的購物清單
func (a *Aggregator) Build(items []recipe.MealPlanItem) (*List, error) {
	for i, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("meal plan item %d: %w", i, err)
		}
	}

	merged := make(map[string]*recipe.ShoppingListItem)
	for _, it := range items {
		r := it.Recipe
		if len(r.Ingredients) == 0 {
			continue
		}
		servings := r.Servings
		if servings <= 0 {
			servings = 1
		}
		factor := float64(it.Portions) / float64(servings)
		lineCost := 0.0
		if r.PricePerServingCents > 0 {
			lineCost = r.PricePerServingCents * float64(it.Portions) / float64(len(r.Ingredients))
		}

		for _, line := range r.Ingredients {
			name := lineName(line)
			if name == "" || a.IsStaple(name) {
				continue
			}
			amount := line.Amount * factor
			unit := recipe.NormalizeUnit(line.Unit)

			existing, ok := merged[name]
			if !ok {
				merged[name] = &recipe.ShoppingListItem{
					Name:               name,
					Amount:             amount,
					Unit:               unit,
					Aisle:              a.Aisle(name),
					EstimatedCostCents: lineCost,
				}
				continue
			}
			existing.Amount += convert(amount, unit, existing.Unit)
			existing.EstimatedCostCents += lineCost
		}
	}

	return assemble(merged), nil
}

// IsStaple 名稱在單字邊界上包含任一常備品，或本身就是泛稱常備品
//
// 只做單向比對："garlic" 不會因為 "garlic powder" 而被排除。
func (a *Aggregator) IsStaple(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	if a.generic[name] || a.generic[strings.TrimSuffix(name, "s")] {
		return true
	}
	for _, s := range a.staples {
		if matcher.ContainsTerm(name, s) {
			return true
		}
	}
	return false
}

// Aisle 依食材目錄分類，其次為關鍵字表，預設 "Groceries"
func (a *Aggregator) Aisle(name string) string {
	best, bestLen := "", 0
	for _, e := range a.catalog.Entries() {
		for _, syn := range a.catalog.Synonyms(e.ID) {
			if len(syn) > bestLen && matcher.ContainsTerm(name, syn) {
				best, bestLen = e.Category, len(syn)
			}
		}
	}
	if best != "" {
		return best
	}
	for _, kw := range aisleKeywords {
		if matcher.ContainsTerm(name, kw.term) {
			return kw.aisle
		}
	}
	return recipe.AisleDefault
}

var aisleKeywords = []struct {
	term  string
	aisle string
}{
	{"frozen", recipe.AisleFrozen},
	{"canned", recipe.AisleCanned},
	{"stock", recipe.AisleCanned},
	{"broth", recipe.AisleCanned},
	{"sauce", recipe.AisleCondiment},
	{"vinegar", recipe.AisleCondiment},
	{"mustard", recipe.AisleCondiment},
	{"ketchup", recipe.AisleCondiment},
	{"mayonnaise", recipe.AisleCondiment},
	{"honey", recipe.AisleCondiment},
	{"baking", recipe.AisleBaking},
	{"yeast", recipe.AisleBaking},
	{"cocoa", recipe.AisleBaking},
	{"chocolate", recipe.AisleBaking},
	{"fillet", recipe.AisleMeat},
	{"fish", recipe.AisleMeat},
	{"turkey", recipe.AisleMeat},
	{"noodles", recipe.AisleGrains},
	{"quinoa", recipe.AisleGrains},
	{"couscous", recipe.AisleGrains},
	{"herbs", recipe.AisleProduce},
	{"parsley", recipe.AisleProduce},
	{"coriander", recipe.AisleProduce},
	{"cilantro", recipe.AisleProduce},
	{"basil", recipe.AisleProduce},
	{"celery", recipe.AisleProduce},
	{"cabbage", recipe.AisleProduce},
	{"chilli", recipe.AisleProduce},
	{"chili", recipe.AisleProduce},
}

func lineName(line recipe.IngredientLine) string {
	name := line.Name
	if strings.TrimSpace(name) == "" {
		name = line.RawText
	}
	return strings.ToLower(strings.TrimSpace(name))
}

func assemble(merged map[string]*recipe.ShoppingListItem) *List {
	items := make([]recipe.ShoppingListItem, 0, len(merged))
	for _, it := range merged {
		items = append(items, *it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Aisle != items[j].Aisle {
			return items[i].Aisle < items[j].Aisle
		}
		return items[i].Name < items[j].Name
	})

	list := &List{
		Items:  make([]recipe.ShoppingListItem, 0, len(items)),
		Groups: []Group{},
	}
	for _, item := range items {
		list.Items = append(list.Items, item)
		list.TotalCostCents += item.EstimatedCostCents

		n := len(list.Groups)
		if n == 0 || list.Groups[n-1].Aisle != item.Aisle {
			list.Groups = append(list.Groups, Group{Aisle: item.Aisle})
			n++
		}
		list.Groups[n-1].Items = append(list.Groups[n-1].Items, item)
		list.Groups[n-1].TotalCostCents += item.EstimatedCostCents
	}
	return list
}
