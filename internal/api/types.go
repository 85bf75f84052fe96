package api

import (
	"desa-api/internal/analytics"
	"desa-api/internal/locate"
	"desa-api/internal/village"
)

// 文档注释：对外序列化模型
// 背景：/macro 与 /micro 沿用数据服务的 {"data": ...} 包装，记录字段平铺，附带评分结果。
// 约束：字段稳定；新增字段需评估前端依赖。
type macroItem struct {
	village.Record
	HealthRadar     analytics.HealthRadar     `json:"health_radar"`
	EducationFunnel analytics.EducationFunnel `json:"education_funnel"`
}

type microStats struct {
	Doctors int    `json:"doctors"`
	Schools int    `json:"schools"`
	Markets int    `json:"markets"`
	Signal  string `json:"signal"`
}

type microAnalytics struct {
	HealthRadar       analytics.HealthRadar       `json:"health_radar"`
	EducationFunnel   analytics.EducationFunnel   `json:"education_funnel"`
	IndependenceIndex analytics.IndependenceIndex `json:"independence_index"`
}

type microItem struct {
	village.Record
	Stats     microStats     `json:"stats"`
	Analytics microAnalytics `json:"analytics"`
}

type kpiResponse struct {
	Summary     analytics.Summary            `json:"summary"`
	Income      []analytics.Slice            `json:"income"`
	Electricity []analytics.Slice            `json:"electricity"`
	Industry    []analytics.DistrictIndustry `json:"industry"`
	Signal      []analytics.Slice            `json:"signal"`
	Boundaries  string                       `json:"boundaries"`
}

type leaderboardResponse struct {
	Risk    []analytics.Entry `json:"risk"`
	Economy []analytics.Entry `json:"economy"`
}

type lensResponse struct {
	Lens    analytics.Lens          `json:"lens"`
	Markers []analytics.MarkerStyle `json:"markers"`
}

type locateResponse struct {
	State     locate.State     `json:"state"`
	Selection locate.Selection `json:"selection"`
}

type pinRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type selectRequest struct {
	ID string `json:"id"`
}

type viewRequest struct {
	View locate.View `json:"view"`
}

type errorBody struct {
	Detail string `json:"detail"`
}
