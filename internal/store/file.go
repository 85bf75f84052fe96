package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"desa-api/internal/village"
)

// 文档注释：本地文件记录来源
// 背景：离线演示与测试使用；记录文件可以是 JSON 数组，也可以是 {"data": [...]} 包装（与 /macro 响应同构）。
type FileSource struct {
	RecordsPath  string
	BoundaryPath string
}

func (f FileSource) Name() string { return "file" }

func (f FileSource) FetchRecords(ctx context.Context) ([]village.Record, error) {
	b, err := os.ReadFile(f.RecordsPath)
	if err != nil {
		return nil, err
	}
	return DecodeRecords(b)
}

func (f FileSource) FetchBoundaries(ctx context.Context) ([]byte, error) {
	if f.BoundaryPath == "" {
		return nil, ErrNotFound
	}
	b, err := os.ReadFile(f.BoundaryPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

// DecodeRecords：解析记录数组或 {"data": [...]} 包装
func DecodeRecords(b []byte) ([]village.Record, error) {
	var arr []village.Record
	if err := json.Unmarshal(b, &arr); err == nil {
		return arr, nil
	}
	var wrapped struct {
		Data []village.Record `json:"data"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return wrapped.Data, nil
}
