package shopping

type unitClass int

const (
	classNone unitClass = iota
	classVolume
	classMass
)

// 換算成各類別的基本單位（毫升、公克）
var unitFactors = map[string]struct {
	class  unitClass
	factor float64
}{
	"ml":    {classVolume, 1},
	"l":     {classVolume, 1000},
	"tsp":   {classVolume, 4.92892},
	"tbsp":  {classVolume, 14.7868},
	"cup":   {classVolume, 236.588},
	"pint":  {classVolume, 473.176},
	"quart": {classVolume, 946.353},
	"g":     {classMass, 1},
	"kg":    {classMass, 1000},
	"oz":    {classMass, 28.3495},
	"lb":    {classMass, 453.592},
}

// convert 同類別單位換算到 to；無法換算時原數值相加（保留第一個出現的單位）
func convert(amount float64, from, to string) float64 {
	if from == to {
		return amount
	}
	f, okFrom := unitFactors[from]
	t, okTo := unitFactors[to]
	if !okFrom || !okTo || f.class != t.class {
		return amount
	}
	return amount * f.factor / t.factor
}
