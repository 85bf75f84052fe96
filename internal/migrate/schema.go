package migrate

import (
	"context"

	"github.com/jmoiron/sqlx"

	"desa-api/internal/logger"
)

// 背景：首次运行自动创建村级记录与村界文档表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；属性分组以 JSONB 整体存放，列只保留检索用字段
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS villages (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            district TEXT NOT NULL DEFAULT '',
            latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
            longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
            doc JSONB NOT NULL,
            seq BIGSERIAL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_villages_district ON villages(district)`,
		`CREATE INDEX IF NOT EXISTS idx_villages_seq ON villages(seq)`,
		`CREATE TABLE IF NOT EXISTS village_boundaries (
            id INT PRIMARY KEY,
            doc JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
