package analytics

import "desa-api/internal/village"

// Lens：地图分级模式，同一时刻仅一个生效
type Lens string

const (
	LensRisk       Lens = "risk"
	LensDigital    Lens = "digital"
	LensEconomy    Lens = "economy"
	LensTopography Lens = "topography"
	LensFlood      Lens = "flood"
	LensLandslide  Lens = "landslide"
	LensDrought    Lens = "drought"
	LensWater      Lens = "water"
)

// Lenses 为全部已定义模式（按看板按钮顺序）
var Lenses = []Lens{LensRisk, LensDigital, LensEconomy, LensTopography, LensFlood, LensLandslide, LensDrought, LensWater}

// ParseLens：解析外部传入的模式名，未知时返回 false
func ParseLens(s string) (Lens, bool) {
	for _, l := range Lenses {
		if string(l) == village.Norm(s) {
			return l, true
		}
	}
	return "", false
}

// Category：分级结果的标签变体
type Category string

const (
	CatEmphasized Category = "emphasized"
	CatDefault    Category = "default"
	CatPlain      Category = "plain"
	CatSlope      Category = "slope"
	CatPeak       Category = "peak"
	CatWell       Category = "well"
	CatRain       Category = "rain"
	CatSpring     Category = "spring"
	CatPiped      Category = "piped"
	CatPackaged   Category = "packaged"
	CatUnknown    Category = "unknown"
)

// Style：单条记录在当前 lens 下的展示样式
type Style struct {
	Category   Category `json:"category"`
	Emphasized bool     `json:"emphasized"`
	Color      string   `json:"color"`
	Radius     int      `json:"radius"`
}

// 文档注释：关键字规则（按顺序首个命中生效）
// 背景：地形与水源文本可能同时包含多个关键字，优先级以列表顺序为准，便于审计与测试。
type rule struct {
	keywords []string
	category Category
}

var topographyRules = []rule{
	{[]string{kwPlain}, CatPlain},
	{[]string{kwSlope}, CatSlope},
	{[]string{kwPeak}, CatPeak},
}

var waterRules = []rule{
	{[]string{kwWell}, CatWell},
	{[]string{kwRain}, CatRain},
	{[]string{kwSpring}, CatSpring},
	{[]string{"ledeng", "pdam", "pam"}, CatPiped},
	{[]string{"isi ulang", "kemasan"}, CatPackaged},
}

func firstMatch(text string, rules []rule) Category {
	for _, r := range rules {
		if village.ContainsAny(text, r.keywords...) {
			return r.category
		}
	}
	return CatUnknown
}

// 二值 lens 的强调判定
var emphasisRules = map[Lens]func(r *village.Record) bool{
	LensRisk: func(r *village.Record) bool {
		return village.Exact(r.Disaster.DisasterExist, village.Present) || r.Disease.InfectiousCases > 5
	},
	LensDigital: func(r *village.Record) bool {
		return village.Contains(r.Digital.VillageInformationSystem, village.Present)
	},
	LensEconomy: func(r *village.Record) bool {
		return r.Economy.Markets > 0 || r.Economy.Bumdes > 0
	},
	LensFlood: func(r *village.Record) bool {
		return village.Exact(r.Disaster.FloodExist, village.Present) || village.Exact(r.Disaster.FlashFloodExist, village.Present)
	},
	LensLandslide: func(r *village.Record) bool {
		return village.Exact(r.Disaster.LandslideExist, village.Present)
	},
	LensDrought: func(r *village.Record) bool {
		return village.Exact(r.Disaster.DroughtExist, village.Present)
	},
}

type styleKey struct {
	lens Lens
	cat  Category
}

// 颜色/半径表；强调或命中类别的半径始终大于默认/未知类别
var styles = map[styleKey]Style{
	{LensRisk, CatEmphasized}:      {Color: "#EF4444", Radius: 6},
	{LensRisk, CatDefault}:         {Color: "#10B981", Radius: 4},
	{LensDigital, CatEmphasized}:   {Color: "#10B981", Radius: 6},
	{LensDigital, CatDefault}:      {Color: "#F59E0B", Radius: 4},
	{LensEconomy, CatEmphasized}:   {Color: "#3B82F6", Radius: 6},
	{LensEconomy, CatDefault}:      {Color: "#9CA3AF", Radius: 3},
	{LensFlood, CatEmphasized}:     {Color: "#EF4444", Radius: 6},
	{LensFlood, CatDefault}:        {Color: "#E5E7EB", Radius: 3},
	{LensLandslide, CatEmphasized}: {Color: "#D97706", Radius: 6},
	{LensLandslide, CatDefault}:    {Color: "#E5E7EB", Radius: 3},
	{LensDrought, CatEmphasized}:   {Color: "#F59E0B", Radius: 6},
	{LensDrought, CatDefault}:      {Color: "#E5E7EB", Radius: 3},
	{LensTopography, CatPlain}:     {Color: "#10B981", Radius: 5},
	{LensTopography, CatSlope}:     {Color: "#F59E0B", Radius: 5},
	{LensTopography, CatPeak}:      {Color: "#8B5CF6", Radius: 6},
	{LensTopography, CatUnknown}:   {Color: "#6B7280", Radius: 4},
	{LensWater, CatWell}:           {Color: "#3B82F6", Radius: 5},
	{LensWater, CatRain}:           {Color: "#06B6D4", Radius: 5},
	{LensWater, CatSpring}:         {Color: "#10B981", Radius: 5},
	{LensWater, CatPiped}:          {Color: "#8B5CF6", Radius: 5},
	{LensWater, CatPackaged}:       {Color: "#F59E0B", Radius: 5},
	{LensWater, CatUnknown}:        {Color: "#9CA3AF", Radius: 4},
}

var fallbackStyle = Style{Category: CatUnknown, Color: "#6B7280", Radius: 4}

// 文档注释：按 lens 对单条记录分级
// 背景：地图标记颜色与大小由此决定；对所有已定义 lens 全覆盖，空或无法识别的文本落入 unknown/default。
// 约束：纯函数；未定义的 lens 返回灰色 unknown 样式。
func Classify(r village.Record, l Lens) Style {
	var cat Category
	switch l {
	case LensTopography:
		cat = firstMatch(r.Topography, topographyRules)
	case LensWater:
		cat = firstMatch(r.Infrastructure.WaterDrinkSource, waterRules)
	default:
		pred, ok := emphasisRules[l]
		if !ok {
			return fallbackStyle
		}
		cat = CatDefault
		if pred(&r) {
			cat = CatEmphasized
		}
	}
	st := styles[styleKey{l, cat}]
	st.Category = cat
	st.Emphasized = cat != CatDefault && cat != CatUnknown
	return st
}

// MarkerStyle：带记录标识的分级结果，供地图层按 id 渲染
type MarkerStyle struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Style
}

// ClassifyAll：对整个集合应用同一 lens，保持输入顺序
func ClassifyAll(records []village.Record, l Lens) []MarkerStyle {
	out := make([]MarkerStyle, 0, len(records))
	for _, r := range records {
		out = append(out, MarkerStyle{ID: r.ID, Name: r.Name, Latitude: r.Latitude, Longitude: r.Longitude, Style: Classify(r, l)})
	}
	return out
}
