package analytics

import (
	"math"

	"desa-api/internal/village"
)

// HealthRadar：医疗供给与需求对比
type HealthRadar struct {
	Supply int    `json:"supply"`
	Demand int    `json:"demand"`
	Status string `json:"status"`
}

// EducationFunnel：升学漏斗
type EducationFunnel struct {
	Ratio  float64 `json:"ratio"`
	Status string  `json:"status"`
}

// IndependenceIndex：村庄自立指数
type IndependenceIndex struct {
	Score   float64            `json:"score"`
	Grade   string             `json:"grade"`
	Details map[string]float64 `json:"details"`
}

// 文档注释：医疗雷达
// 背景：供给 = 医生*3 + 助产士 + 卫生所*5；需求取传染病病例数。健康分组缺失时状态为 Unknown。
func ScoreHealth(r village.Record) HealthRadar {
	if !r.Health.Present() {
		return HealthRadar{Status: "Unknown"}
	}
	h := r.Health
	supply := h.Doctors*3 + h.Midwives + h.Puskesmas*5
	demand := r.Disease.InfectiousCases
	status := "Safe"
	if demand > supply {
		status = "High Risk"
	}
	return HealthRadar{Supply: supply, Demand: demand, Status: status}
}

// 文档注释：升学漏斗
// 约束：无小学时视为辍学风险区；比例 < 0.2 同样视为风险区。比例保留两位小数。
func ScoreEducation(r village.Record) EducationFunnel {
	if !r.Education.Present() {
		return EducationFunnel{Status: "Unknown"}
	}
	e := r.Education
	if e.SD == 0 {
		return EducationFunnel{Ratio: 0, Status: "Dropout Risk Zone"}
	}
	ratio := float64(e.SMP+e.SMA) / float64(e.SD)
	status := "Stable"
	if ratio < 0.2 {
		status = "Dropout Risk Zone"
	}
	return EducationFunnel{Ratio: round2(ratio), Status: status}
}

// 文档注释：自立指数（数字化、居住条件、经济各占三分之一）
// 背景：各子项 0-100；数字化/基础设施/经济任一分组缺失时返回 Incomplete Data。
// 约束：分档 >80 Maju、>50 Berkembang，其余 Tertinggal。
func ScoreIndependence(r village.Record) IndependenceIndex {
	if !r.Digital.Present() || !r.Infrastructure.Present() || !r.Economy.Present() {
		return IndependenceIndex{Grade: "Incomplete Data", Details: map[string]float64{"digital": 0, "living": 0, "economy": 0}}
	}
	d := r.Digital
	sig := 0.0
	switch {
	case village.Contains(d.SignalStrength, kwStrong):
		sig = 100
	case village.Contains(d.SignalStrength, kwWeak):
		sig = 50
	}
	digital := (sig + capScore(d.BTSCount, 20)) / 2

	i := r.Infrastructure
	water := firstNonEmpty(i.WaterSource, i.WaterDrinkSource)
	elec := firstNonEmpty(i.Electricity, i.ElectricitySource)
	waterScore, elecScore, fuelScore := 50.0, 0.0, 50.0
	if village.ContainsAny(water, "leding", "pompa", "bor") {
		waterScore = 100
	}
	if village.Contains(elec, "pln") {
		elecScore = 100
	}
	if village.ContainsAny(i.CookingFuel, "gas", "listrik") {
		fuelScore = 100
	}
	living := (waterScore + elecScore + fuelScore) / 3

	e := r.Economy
	economy := (capScore(e.Markets, 20) + capScore(e.Banks+e.Bank, 50) + capScore(e.Cooperatives, 20) + capScore(e.Bumdes, 50)) / 4

	total := (digital + living + economy) / 3
	grade := "Tertinggal"
	switch {
	case total > 80:
		grade = "Maju"
	case total > 50:
		grade = "Berkembang"
	}
	return IndependenceIndex{
		Score: round2(total),
		Grade: grade,
		Details: map[string]float64{
			"digital": round2(digital),
			"living":  round2(living),
			"economy": round2(economy),
		},
	}
}

func capScore(n, per int) float64 { return math.Min(float64(n*per), 100) }

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
