package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"desa-api/internal/logger"
	"desa-api/internal/village"
)

// 村界文档固定存放在 village_boundaries 的这一行
const boundaryRowID = 1

// 文档注释：PostgreSQL 记录来源
// 背景：villages 表按 id 主键存放，属性分组整体以 JSONB 保存在 doc 列；seq 保留首次写入顺序。
// 约束：读取按 seq 升序；写入为幂等 upsert，不改变已有记录的 seq。
type PostgresSource struct {
	db *sqlx.DB
}

func NewPostgresSource(db *sqlx.DB) *PostgresSource { return &PostgresSource{db: db} }

func (p *PostgresSource) Name() string { return "postgres" }

type villageRow struct {
	ID        string  `db:"id"`
	Name      string  `db:"name"`
	District  string  `db:"district"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Doc       string  `db:"doc"`
}

func (p *PostgresSource) FetchRecords(ctx context.Context) ([]village.Record, error) {
	var rows []villageRow
	if err := p.db.SelectContext(ctx, &rows, `SELECT id, name, district, latitude, longitude, doc FROM villages ORDER BY seq`); err != nil {
		return nil, fmt.Errorf("select villages: %w", err)
	}
	out := make([]village.Record, 0, len(rows))
	for _, row := range rows {
		var r village.Record
		if err := json.Unmarshal([]byte(row.Doc), &r); err != nil {
			logger.L().Warn("village_doc_invalid", "id", row.ID, "err", err)
			continue
		}
		// 列值为准，doc 中的同名字段可能是旧值
		r.ID, r.Name, r.District, r.Latitude, r.Longitude = row.ID, row.Name, row.District, row.Latitude, row.Longitude
		out = append(out, r)
	}
	return out, nil
}

func (p *PostgresSource) FetchBoundaries(ctx context.Context) ([]byte, error) {
	var doc string
	err := p.db.GetContext(ctx, &doc, `SELECT doc FROM village_boundaries WHERE id=$1`, boundaryRowID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select boundaries: %w", err)
	}
	return []byte(doc), nil
}

const upsertVillage = `INSERT INTO villages (id, name, district, latitude, longitude, doc)
VALUES (:id, :name, :district, :latitude, :longitude, CAST(:doc AS JSONB))
ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, district=EXCLUDED.district,
    latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude, doc=EXCLUDED.doc, updated_at=now()`

// UpsertRecords：单事务写入；任一记录缺少 id 时整体回滚
func (p *PostgresSource) UpsertRecords(ctx context.Context, recs []village.Record) (int, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	for i, r := range recs {
		if r.ID == "" {
			return 0, fmt.Errorf("record %d: missing id", i)
		}
		doc, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("record %s: %w", r.ID, err)
		}
		row := villageRow{ID: r.ID, Name: r.Name, District: r.District, Latitude: r.Latitude, Longitude: r.Longitude, Doc: string(doc)}
		if _, err := tx.NamedExecContext(ctx, upsertVillage, row); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(recs), nil
}

// UpsertBoundaries：整体替换村界文档
func (p *PostgresSource) UpsertBoundaries(ctx context.Context, raw []byte) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO village_boundaries (id, doc) VALUES ($1, CAST($2 AS JSONB))
ON CONFLICT (id) DO UPDATE SET doc=EXCLUDED.doc, updated_at=now()`, boundaryRowID, string(raw))
	return err
}
