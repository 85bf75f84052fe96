package analytics

import (
	"sort"

	"desa-api/internal/village"
)

// Metric：排行榜取值函数
type Metric func(r village.Record) int

// LeaderboardSize 为看板常驻排行榜长度
const LeaderboardSize = 5

// InfectiousCases：传染病病例数
func InfectiousCases(r village.Record) int { return r.Disease.InfectiousCases }

// MarketsAndBumdes：市场数 + 村办企业数
func MarketsAndBumdes(r village.Record) int { return r.Economy.Markets + r.Economy.Bumdes }

// 文档注释：取前 N 名
// 背景：按 metric 降序；相同取值保持输入顺序（稳定排序），保证结果可复现。
// 约束：不修改入参；n<=0 返回空；n 超过集合长度时返回全部。
func TopN(records []village.Record, metric Metric, n int) []village.Record {
	if n <= 0 || len(records) == 0 {
		return []village.Record{}
	}
	cp := append([]village.Record(nil), records...)
	sort.SliceStable(cp, func(i, j int) bool { return metric(cp[i]) > metric(cp[j]) })
	if n > len(cp) {
		n = len(cp)
	}
	return cp[:n]
}

// TopRisk：传染病病例前五
func TopRisk(records []village.Record) []village.Record {
	return TopN(records, InfectiousCases, LeaderboardSize)
}

// TopEconomy：市场 + 村办企业前五
func TopEconomy(records []village.Record) []village.Record {
	return TopN(records, MarketsAndBumdes, LeaderboardSize)
}

// Entry：排行榜对外条目
type Entry struct {
	Rank     int    `json:"rank"`
	ID       string `json:"id"`
	Name     string `json:"name"`
	District string `json:"district"`
	Value    int    `json:"value"`
}

// Entries：把排序结果转成带名次与取值的条目
func Entries(ranked []village.Record, metric Metric) []Entry {
	out := make([]Entry, 0, len(ranked))
	for i, r := range ranked {
		out = append(out, Entry{Rank: i + 1, ID: r.ID, Name: r.Name, District: r.District, Value: metric(r)})
	}
	return out
}
