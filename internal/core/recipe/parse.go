package recipe

import (
	"strconv"
	"strings"
	"unicode"
)

// 單位別名對應標準寫法
var unitAliases = map[string]string{
	"cup": "cup", "cups": "cup", "c": "cup",
	"tablespoon": "tbsp", "tablespoons": "tbsp", "tbsp": "tbsp", "tbs": "tbsp", "tbls": "tbsp", "tblsp": "tbsp",
	"teaspoon": "tsp", "teaspoons": "tsp", "tsp": "tsp", "tsps": "tsp",
	"g": "g", "gr": "g", "gram": "g", "grams": "g",
	"kg": "kg", "kilogram": "kg", "kilograms": "kg",
	"ml": "ml", "milliliter": "ml", "milliliters": "ml", "millilitre": "ml", "millilitres": "ml",
	"l": "l", "liter": "l", "liters": "l", "litre": "l", "litres": "l",
	"oz": "oz", "ounce": "oz", "ounces": "oz",
	"lb": "lb", "lbs": "lb", "pound": "lb", "pounds": "lb",
	"pint": "pint", "pints": "pint",
	"quart": "quart", "quarts": "quart",
	"pinch": "pinch", "pinches": "pinch",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can", "tin": "can", "tins": "can",
	"slice": "slice", "slices": "slice",
	"bunch": "bunch", "bunches": "bunch",
	"handful": "handful", "handfuls": "handful",
}

var unicodeFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
	'⅛': 0.125,
}

// NormalizeUnit 轉為標準單位，未知單位轉小寫原樣回傳
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.Trim(strings.TrimSpace(unit), ".,"))
	if std, ok := unitAliases[u]; ok {
		return std
	}
	return u
}

// ParseIngredientLine 解析 "2 cups flour" 形式的食材原文
func ParseIngredientLine(raw string) IngredientLine {
	raw = strings.TrimSpace(raw)
	amount, unit, rest := splitMeasure(raw)
	name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "of "))
	if name == "" {
		name = raw
	}
	return IngredientLine{
		RawText: raw,
		Name:    name,
		Amount:  amount,
		Unit:    unit,
	}
}

// NewIngredientLine 由分開的食材名稱與份量字串（例如 "1/2 cup"）組成食材行
func NewIngredientLine(name, measure string) IngredientLine {
	name = strings.TrimSpace(name)
	measure = strings.TrimSpace(measure)
	amount, unit, _ := splitMeasure(measure)
	return IngredientLine{
		RawText: strings.TrimSpace(measure + " " + name),
		Name:    name,
		Amount:  amount,
		Unit:    unit,
	}
}

// splitMeasure 取出開頭的數量與單位，回傳剩餘文字
func splitMeasure(s string) (float64, string, string) {
	tokens := strings.Fields(s)
	amount := 0.0
	i := 0
	unit := ""

	for i < len(tokens) {
		num, suffix, ok := parseQuantity(tokens[i])
		if !ok {
			break
		}
		amount += num
		i++
		// "200g" 這類數字與單位相連
		if suffix != "" {
			if std, known := unitAliases[strings.ToLower(suffix)]; known {
				unit = std
			}
			break
		}
	}

	if i > 0 && unit == "" && i < len(tokens) {
		if std, ok := unitAliases[strings.ToLower(strings.Trim(tokens[i], ".,"))]; ok {
			unit = std
			i++
		}
	}

	return amount, unit, strings.Join(tokens[i:], " ")
}

// parseQuantity 解析 "2"、"1/2"、"2.5"、"½"、"1-2"、"200g"
func parseQuantity(tok string) (float64, string, bool) {
	if tok == "" {
		return 0, "", false
	}

	runes := []rune(tok)
	if len(runes) == 1 {
		if f, ok := unicodeFractions[runes[0]]; ok {
			return f, "", true
		}
	}

	// 數字部分結束的位置
	end := 0
	for end < len(runes) && (unicode.IsDigit(runes[end]) || runes[end] == '.' || runes[end] == '/' || runes[end] == '-') {
		end++
	}
	if end == 0 {
		return 0, "", false
	}

	numPart := string(runes[:end])
	suffix := string(runes[end:])

	// "1½"
	if r := []rune(suffix); len(r) == 1 {
		if f, ok := unicodeFractions[r[0]]; ok {
			base, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, "", false
			}
			return base + f, "", true
		}
	}

	// 範圍取下限
	if idx := strings.Index(numPart, "-"); idx > 0 {
		numPart = numPart[:idx]
	}

	if idx := strings.Index(numPart, "/"); idx > 0 {
		n, err1 := strconv.ParseFloat(numPart[:idx], 64)
		d, err2 := strconv.ParseFloat(numPart[idx+1:], 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0, "", false
		}
		return n / d, suffix, true
	}

	f, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, "", false
	}
	return f, suffix, true
}
