package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"desa-api/internal/analytics"
	"desa-api/internal/logger"
	"desa-api/internal/migrate"
	"desa-api/internal/revgeo"
	"desa-api/internal/store"
	"desa-api/internal/utils"
)

// 文档注释：导入村级记录与村界到 Postgres
// 背景：记录文件为 JSON 数组或 {"data": [...]} 包装；村界为 GeoJSON FeatureCollection，导入前先解析校验。
// 约束：按 id 幂等覆盖；导入完成后向标准输出打印区域 KPI 便于核对。
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	recPath := flag.String("records", "data/villages.json", "village records JSON")
	bPath := flag.String("boundaries", "", "village boundary GeoJSON (optional)")
	flag.Parse()

	raw, err := os.ReadFile(*recPath)
	if err != nil {
		l.Error("records_read_error", "path", *recPath, "err", err)
		os.Exit(1)
	}
	recs, err := store.DecodeRecords(raw)
	if err != nil {
		l.Error("records_decode_error", "err", err)
		os.Exit(1)
	}
	var braw []byte
	if *bPath != "" {
		set, err := revgeo.LoadBoundaryFile(*bPath)
		if err != nil {
			l.Error("boundaries_parse_error", "path", *bPath, "err", err)
			os.Exit(1)
		}
		l.Info("boundaries_parsed", "units", set.Len())
		braw = set.Raw
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	db, err := utils.OpenPostgresFromEnv(ctx)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	pg := store.NewPostgresSource(db)
	n, err := pg.UpsertRecords(ctx, recs)
	if err != nil {
		l.Error("records_upsert_error", "err", err)
		os.Exit(1)
	}
	l.Info("records_upsert_ok", "count", n)
	if braw != nil {
		if err := pg.UpsertBoundaries(ctx, braw); err != nil {
			l.Error("boundaries_upsert_error", "err", err)
			os.Exit(1)
		}
		l.Info("boundaries_upsert_ok", "bytes", len(braw))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(analytics.Aggregate(recs))
}
