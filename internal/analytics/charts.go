package analytics

import (
	"sort"

	"desa-api/internal/village"
)

// Slice：图表数据点（名称 + 数量）
type Slice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

const otherIncome = "Lainnya"

// 文档注释：主要收入来源分布
// 背景：取 primary_income 的第一个标签计数；缺失归入 "Lainnya"。按数量降序，数量相同按名称升序。
func IncomeDistribution(records []village.Record) []Slice {
	counts := make(map[string]int)
	for _, r := range records {
		counts[village.FirstTag(r.Economy.PrimaryIncome, otherIncome)]++
	}
	out := make([]Slice, 0, len(counts))
	for k, v := range counts {
		out = append(out, Slice{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ElectricityCoverage：国家电力、非国家电力、无电三类的村数（可重叠）
func ElectricityCoverage(records []village.Record) []Slice {
	var pln, nonPln, none int
	for _, r := range records {
		if r.Infrastructure.StateElectricity > 0 {
			pln++
		}
		if r.Infrastructure.NonStateElectricity > 0 {
			nonPln++
		}
		if r.Infrastructure.NoElectricity > 0 {
			none++
		}
	}
	return []Slice{{"PLN", pln}, {"Non-PLN", nonPln}, {"Tidak Ada", none}}
}

// DistrictIndustry：按乡镇汇总的工业构成
type DistrictIndustry struct {
	Name     string `json:"name"`
	Mining   int    `json:"galian"`
	Paper    int    `json:"kertas"`
	Printing int    `json:"percetakan"`
	Food     int    `json:"makanan"`
}

func (d DistrictIndustry) Total() int { return d.Mining + d.Paper + d.Printing + d.Food }

// 文档注释：乡镇工业构成（堆叠柱状图）
// 背景：食品工业以小吃店 + 餐馆近似；乡镇为空时归入 "Unknown"。按合计降序，合计相同保持首次出现顺序。
func IndustryByDistrict(records []village.Record) []DistrictIndustry {
	idx := make(map[string]int)
	var out []DistrictIndustry
	for _, r := range records {
		name := r.District
		if name == "" {
			name = "Unknown"
		}
		i, ok := idx[name]
		if !ok {
			i = len(out)
			idx[name] = i
			out = append(out, DistrictIndustry{Name: name})
		}
		d := &out[i]
		d.Mining += r.Economy.MiningIndustry
		d.Paper += r.Economy.PaperIndustry
		d.Printing += r.Economy.PrintIndustry
		d.Food += r.Economy.Eatery + r.Economy.Restaurant
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total() > out[j].Total() })
	return out
}

// SignalClass：信号强度文本的分类
type SignalClass string

const (
	SignalVeryStrong SignalClass = "very-strong"
	SignalStrong     SignalClass = "strong"
	SignalWeak       SignalClass = "weak"
	SignalUnknown    SignalClass = "unknown"
)

var signalRules = []struct {
	keywords []string
	class    SignalClass
}{
	{[]string{"sangat kuat"}, SignalVeryStrong},
	{[]string{kwStrong}, SignalStrong},
	{[]string{kwWeak, "cukup"}, SignalWeak},
}

// ClassifySignal：按顺序子串匹配，首个命中生效
func ClassifySignal(s string) SignalClass {
	for _, r := range signalRules {
		if village.ContainsAny(s, r.keywords...) {
			return r.class
		}
	}
	return SignalUnknown
}

// SignalBreakdown：按信号分类计数，顺序固定为 very-strong、strong、weak、unknown
func SignalBreakdown(records []village.Record) []Slice {
	order := []SignalClass{SignalVeryStrong, SignalStrong, SignalWeak, SignalUnknown}
	counts := make(map[SignalClass]int, len(order))
	for _, r := range records {
		counts[ClassifySignal(r.Digital.SignalStrength)]++
	}
	out := make([]Slice, 0, len(order))
	for _, c := range order {
		out = append(out, Slice{Name: string(c), Value: counts[c]})
	}
	return out
}
