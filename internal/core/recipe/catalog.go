package recipe

import (
	"strings"
)

// CatalogEntry 固定食材目錄中的一項
type CatalogEntry struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Synonyms []string `json:"synonyms"`
}

// Catalog 使用者可選食材目錄（唯讀）
type Catalog struct {
	entries []CatalogEntry
	byID    map[string]CatalogEntry
}

// NewCatalog 建立食材目錄
func NewCatalog(entries []CatalogEntry) *Catalog {
	c := &Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		byID:    make(map[string]CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		e.ID = strings.ToLower(strings.TrimSpace(e.ID))
		if e.ID == "" {
			continue
		}
		if _, dup := c.byID[e.ID]; dup {
			continue
		}
		c.entries = append(c.entries, e)
		c.byID[e.ID] = e
	}
	return c
}

// Entries 回傳所有項目（依目錄順序）
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Lookup 以 id 查詢
func (c *Catalog) Lookup(id string) (CatalogEntry, bool) {
	e, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return e, ok
}

// Synonyms 回傳搜尋同義詞（小寫，包含名稱）；未知 id 以 id 本身為唯一同義詞
func (c *Catalog) Synonyms(id string) []string {
	e, ok := c.Lookup(id)
	if !ok {
		term := strings.ToLower(strings.TrimSpace(id))
		if term == "" {
			return nil
		}
		return []string{term}
	}
	terms := make([]string, 0, len(e.Synonyms)+1)
	seen := map[string]bool{}
	for _, s := range append([]string{e.Name}, e.Synonyms...) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		terms = append(terms, s)
	}
	return terms
}

// Names 將 id 轉成顯示名稱，供外部來源的食材查詢使用
func (c *Catalog) Names(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if e, ok := c.Lookup(id); ok {
			names = append(names, e.Name)
			continue
		}
		if id = strings.TrimSpace(id); id != "" {
			names = append(names, id)
		}
	}
	return names
}

// 貨架分類
const (
	AisleProduce   = "Produce"
	AisleMeat      = "Meat & Seafood"
	AisleDairy     = "Dairy & Eggs"
	AisleBakery    = "Bakery"
	AisleGrains    = "Pasta & Grains"
	AisleBaking    = "Baking"
	AisleCanned    = "Canned Goods"
	AisleCondiment = "Condiments"
	AisleFrozen    = "Frozen"
	AisleDefault   = "Groceries"
)

// DefaultCatalog 內建食材目錄
func DefaultCatalog() *Catalog {
	return NewCatalog([]CatalogEntry{
		{ID: "chicken", Name: "chicken", Category: AisleMeat, Synonyms: []string{"chicken breast", "chicken thigh", "drumstick"}},
		{ID: "beef", Name: "beef", Category: AisleMeat, Synonyms: []string{"ground beef", "steak", "brisket", "mince"}},
		{ID: "pork", Name: "pork", Category: AisleMeat, Synonyms: []string{"bacon", "ham", "sausage", "chorizo"}},
		{ID: "lamb", Name: "lamb", Category: AisleMeat, Synonyms: []string{"mutton"}},
		{ID: "salmon", Name: "salmon", Category: AisleMeat},
		{ID: "shrimp", Name: "shrimp", Category: AisleMeat, Synonyms: []string{"prawn"}},
		{ID: "tuna", Name: "tuna", Category: AisleMeat},
		{ID: "white-fish", Name: "white fish", Category: AisleMeat, Synonyms: []string{"cod", "haddock", "tilapia"}},
		{ID: "egg", Name: "egg", Category: AisleDairy},
		{ID: "milk", Name: "milk", Category: AisleDairy},
		{ID: "cheese", Name: "cheese", Category: AisleDairy, Synonyms: []string{"cheddar", "parmesan", "mozzarella", "feta"}},
		{ID: "butter", Name: "butter", Category: AisleDairy},
		{ID: "yogurt", Name: "yogurt", Category: AisleDairy, Synonyms: []string{"yoghurt"}},
		{ID: "cream", Name: "cream", Category: AisleDairy, Synonyms: []string{"heavy cream", "sour cream", "creme fraiche"}},
		{ID: "rice", Name: "rice", Category: AisleGrains},
		{ID: "pasta", Name: "pasta", Category: AisleGrains, Synonyms: []string{"spaghetti", "penne", "macaroni", "noodle", "fettuccine", "linguine"}},
		{ID: "oats", Name: "oats", Category: AisleGrains, Synonyms: []string{"oatmeal", "rolled oats"}},
		{ID: "bread", Name: "bread", Category: AisleBakery, Synonyms: []string{"baguette", "tortilla", "pita", "bun"}},
		{ID: "flour", Name: "flour", Category: AisleBaking},
		{ID: "tomato", Name: "tomato", Category: AisleProduce, Synonyms: []string{"cherry tomato"}},
		{ID: "onion", Name: "onion", Category: AisleProduce, Synonyms: []string{"shallot", "scallion", "spring onion"}},
		{ID: "garlic", Name: "garlic", Category: AisleProduce},
		{ID: "potato", Name: "potato", Category: AisleProduce, Synonyms: []string{"sweet potato"}},
		{ID: "carrot", Name: "carrot", Category: AisleProduce},
		{ID: "bell-pepper", Name: "bell pepper", Category: AisleProduce, Synonyms: []string{"capsicum", "red pepper", "green pepper"}},
		{ID: "spinach", Name: "spinach", Category: AisleProduce},
		{ID: "broccoli", Name: "broccoli", Category: AisleProduce},
		{ID: "mushroom", Name: "mushroom", Category: AisleProduce, Synonyms: []string{"champignon"}},
		{ID: "zucchini", Name: "zucchini", Category: AisleProduce, Synonyms: []string{"courgette"}},
		{ID: "eggplant", Name: "eggplant", Category: AisleProduce, Synonyms: []string{"aubergine"}},
		{ID: "cucumber", Name: "cucumber", Category: AisleProduce},
		{ID: "lettuce", Name: "lettuce", Category: AisleProduce, Synonyms: []string{"romaine"}},
		{ID: "avocado", Name: "avocado", Category: AisleProduce},
		{ID: "lemon", Name: "lemon", Category: AisleProduce},
		{ID: "lime", Name: "lime", Category: AisleProduce},
		{ID: "apple", Name: "apple", Category: AisleProduce},
		{ID: "banana", Name: "banana", Category: AisleProduce},
		{ID: "ginger", Name: "ginger", Category: AisleProduce},
		{ID: "beans", Name: "beans", Category: AisleCanned, Synonyms: []string{"bean", "kidney bean", "black bean"}},
		{ID: "chickpeas", Name: "chickpeas", Category: AisleCanned, Synonyms: []string{"chickpea", "garbanzo"}},
		{ID: "lentils", Name: "lentils", Category: AisleCanned, Synonyms: []string{"lentil"}},
		{ID: "coconut-milk", Name: "coconut milk", Category: AisleCanned},
		{ID: "soy-sauce", Name: "soy sauce", Category: AisleCondiment},
		{ID: "tofu", Name: "tofu", Category: AisleProduce},
		{ID: "peas", Name: "peas", Category: AisleFrozen, Synonyms: []string{"pea"}},
	})
}
