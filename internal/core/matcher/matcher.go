// Package matcher 計算食譜對使用者所選食材的使用/缺少數量，並據此排序
package matcher

import (
	"sort"
	"strings"
	"unicode"

	"recipe-aggregator/internal/core/recipe"
)

// Score 食材比對結果
type Score struct {
	Used   int `json:"used"`
	Missed int `json:"missed"`
}

// Ranked 帶分數的食譜
type Ranked struct {
	Recipe recipe.Recipe
	Score  Score
}

// Matcher 食材比對器
type Matcher struct {
	catalog *recipe.Catalog
}

// New 建立比對器；catalog 為 nil 時使用內建目錄
func New(catalog *recipe.Catalog) *Matcher {
	if catalog == nil {
		catalog = recipe.DefaultCatalog()
	}
	return &Matcher{catalog: catalog}
}

// Score 計算 requested（目錄 id）中有幾項出現在食譜食材原文內
func (m *Matcher) Score(r *recipe.Recipe, requested []string) Score {
	text := r.IngredientText()
	score := Score{}
	for _, id := range requested {
		if m.uses(text, id) {
			score.Used++
		} else {
			score.Missed++
		}
	}
	return score
}

func (m *Matcher) uses(text, id string) bool {
	for _, term := range m.catalog.Synonyms(id) {
		if ContainsTerm(text, term) {
			return true
		}
	}
	return false
}

// Rank 依使用數遞減、缺少數遞增排序，同分保留原順序
func (m *Matcher) Rank(recipes []recipe.Recipe, requested []string) []Ranked {
	ranked := make([]Ranked, len(recipes))
	for i := range recipes {
		ranked[i] = Ranked{Recipe: recipes[i], Score: m.Score(&recipes[i], requested)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score.Used != ranked[j].Score.Used {
			return ranked[i].Score.Used > ranked[j].Score.Used
		}
		return ranked[i].Score.Missed < ranked[j].Score.Missed
	})
	return ranked
}

// ContainsTerm 判斷 term 是否出現在 text 中（不分大小寫）。
// term 必須從單字開頭開始，結尾可接 "s" 或 "es" 複數字尾：
// "egg" 不會命中 "eggplant"，"oil" 不會命中 "boiled"，但 "pepper" 會命中 "bell pepper"。
func ContainsTerm(text, term string) bool {
	text = strings.ToLower(text)
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}

	for start := 0; start <= len(text)-len(term); {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		pos := start + idx
		end := pos + len(term)
		if isWordStart(text, pos) && isWordEnd(text, end) {
			return true
		}
		start = pos + 1
	}
	return false
}

func isWordStart(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	return !isWordByte(text[pos-1])
}

// isWordEnd 允許複數字尾
func isWordEnd(text string, end int) bool {
	if end >= len(text) || !isWordByte(text[end]) {
		return true
	}
	for _, suffix := range []string{"s", "es"} {
		if strings.HasPrefix(text[end:], suffix) {
			after := end + len(suffix)
			if after >= len(text) || !isWordByte(text[after]) {
				return true
			}
		}
	}
	return false
}

func isWordByte(b byte) bool {
	if b >= 0x80 {
		return true
	}
	r := rune(b)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
