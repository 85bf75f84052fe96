// 包 store：村级记录与村界文档的数据访问层；记录每次激活重新拉取，村界进程内只拉取一次
package store

import (
	"context"
	"errors"

	"desa-api/internal/village"
)

var ErrNotFound = errors.New("store: not found")

// 文档注释：记录来源（数据服务契约）
// 背景：记录集合无分页/过滤契约，一次返回全部；村界为按 iddesa 关联的 GeoJSON 文档，单独拉取。
// 约束：FetchRecords 返回顺序即“原始顺序”，排行榜并列时依此稳定排序；FetchBoundaries 无数据时返回 ErrNotFound。
type RecordSource interface {
	Name() string
	FetchRecords(ctx context.Context) ([]village.Record, error)
	FetchBoundaries(ctx context.Context) ([]byte, error)
}
