// 包 analytics：区域指标聚合、地图分级（lens）、排行榜与单村评分，全部为纯函数
package analytics

import (
	"fmt"
	"math"

	"desa-api/internal/village"
)

// 关键字表：与数据服务的印尼语录入值对齐
const (
	kwPlain  = "dataran"
	kwSlope  = "lereng"
	kwPeak   = "puncak"
	kwStrong = "kuat"
	kwWeak   = "lemah"
)

var (
	packagedWaterKeywords = []string{"isi ulang", "kemasan", "botol", "bermerek"}
	kwWell                = "sumur"
	kwRain                = "hujan"
	kwSpring              = "mata air"
	kwRiver               = "sungai"
)

// NotAvailable 为空集合时的地形主导度文案
const NotAvailable = "N/A"

type PopulationAtRisk struct {
	Total   int `json:"total"`
	Average int `json:"average"`
	Max     int `json:"max"`
}

type Connectivity struct {
	Percent      int `json:"percent"`
	StrongSignal int `json:"strong_signal"`
	WeakSignal   int `json:"weak_signal"`
}

type EconomicPower struct {
	Total        int `json:"total"`
	Markets      int `json:"markets"`
	Bumdes       int `json:"bumdes"`
	Cooperatives int `json:"cooperatives"`
	Industries   int `json:"industries"`
}

type HealthAlert struct {
	Total    int `json:"total"`
	DBD      int `json:"dbd"`
	Muntaber int `json:"muntaber"`
	Malaria  int `json:"malaria"`
}

// Topography：三类百分比互不排斥，未命中任何关键字的记录不计入任何一类，三者之和不必为 100
type Topography struct {
	Headline string `json:"headline"`
	Plain    int    `json:"plain"`
	Slope    int    `json:"slope"`
	Peak     int    `json:"peak"`
}

// Water：天然水源计数；细分项仅在天然水源子集上独立判定，一条记录可命中 0 或多项
type Water struct {
	Natural int `json:"natural"`
	Well    int `json:"well"`
	Rain    int `json:"rain"`
	Spring  int `json:"spring"`
	River   int `json:"river"`
}

type DisasterExposure struct {
	Flood      int `json:"flood"`
	FlashFlood int `json:"flash_flood"`
	Landslide  int `json:"landslide"`
	Drought    int `json:"drought"`
}

// 文档注释：区域 KPI 汇总
// 背景：驱动宏观看板顶部指标卡；所有字段在空集合时取文档化的零值/"N/A"。
type Summary struct {
	TotalVillages    int              `json:"total_villages"`
	PopulationAtRisk PopulationAtRisk `json:"population_at_risk"`
	Connectivity     Connectivity     `json:"connectivity"`
	EconomicPower    EconomicPower    `json:"economic_power"`
	HealthAlert      HealthAlert      `json:"health_alert"`
	Topography       Topography       `json:"topography"`
	Water            Water            `json:"water"`
	Disaster         DisasterExposure `json:"disaster"`
}

// 文档注释：计算区域 KPI
// 背景：对整个记录集合做一次遍历完成所有计数；纯函数，无副作用。
// 约束：空集合返回零值与 "N/A"，不做除零；连通性为子串判定，灾害为严格相等判定。
func Aggregate(records []village.Record) Summary {
	var s Summary
	n := len(records)
	s.TotalVillages = n
	if n == 0 {
		s.Topography.Headline = NotAvailable
		return s
	}
	var connected, plain, slope, peak int
	for i := range records {
		r := &records[i]

		dp := r.Disease.DisabilityPopulation
		s.PopulationAtRisk.Total += dp
		if dp > s.PopulationAtRisk.Max {
			s.PopulationAtRisk.Max = dp
		}

		if village.Contains(r.Digital.VillageInformationSystem, village.Present) {
			connected++
		}
		if village.Contains(r.Digital.SignalStrength, kwStrong) {
			s.Connectivity.StrongSignal++
		}
		if village.Contains(r.Digital.SignalStrength, kwWeak) {
			s.Connectivity.WeakSignal++
		}

		s.EconomicPower.Markets += r.Economy.Markets
		s.EconomicPower.Bumdes += r.Economy.Bumdes
		s.EconomicPower.Cooperatives += r.Economy.Cooperatives
		s.EconomicPower.Industries += r.Economy.Industries

		s.HealthAlert.Total += r.Disease.InfectiousCases
		s.HealthAlert.DBD += r.Disease.DBDCases
		s.HealthAlert.Muntaber += r.Disease.MuntaberCases
		s.HealthAlert.Malaria += r.Disease.MalariaCases

		if village.Contains(r.Topography, kwPlain) {
			plain++
		}
		if village.Contains(r.Topography, kwSlope) {
			slope++
		}
		if village.Contains(r.Topography, kwPeak) {
			peak++
		}

		src := r.Infrastructure.WaterDrinkSource
		if !village.ContainsAny(src, packagedWaterKeywords...) {
			s.Water.Natural++
			if village.Contains(src, kwWell) {
				s.Water.Well++
			}
			if village.Contains(src, kwRain) {
				s.Water.Rain++
			}
			if village.Contains(src, kwSpring) {
				s.Water.Spring++
			}
			if village.Contains(src, kwRiver) {
				s.Water.River++
			}
		}

		d := r.Disaster
		if village.Exact(d.FloodExist, village.Present) {
			s.Disaster.Flood++
		}
		if village.Exact(d.FlashFloodExist, village.Present) {
			s.Disaster.FlashFlood++
		}
		if village.Exact(d.LandslideExist, village.Present) {
			s.Disaster.Landslide++
		}
		if village.Exact(d.DroughtExist, village.Present) {
			s.Disaster.Drought++
		}
	}
	e := &s.EconomicPower
	e.Total = e.Markets + e.Bumdes + e.Cooperatives + e.Industries
	s.PopulationAtRisk.Average = ratioRound(s.PopulationAtRisk.Total, n, 1)
	s.Connectivity.Percent = Percent(connected, n)
	s.Topography.Plain = Percent(plain, n)
	s.Topography.Slope = Percent(slope, n)
	s.Topography.Peak = Percent(peak, n)
	s.Topography.Headline = fmt.Sprintf("%d%% Dataran", s.Topography.Plain)
	return s
}

// Percent：round(100*part/total)，total 为 0 时返回 0
func Percent(part, total int) int { return ratioRound(part, total, 100) }

func ratioRound(part, total, scale int) int {
	if total <= 0 {
		return 0
	}
	return int(roundHalfUp(float64(part) * float64(scale) / float64(total)))
}

// 四舍五入（.5 向正无穷），与看板展示口径一致
func roundHalfUp(x float64) float64 { return math.Floor(x + 0.5) }
