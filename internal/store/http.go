package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"desa-api/internal/village"
)

// 文档注释：远端数据服务记录来源
// 约束：约定 GET <base>/macro 返回 {"data": [...]}，GET <base>/boundaries 返回 GeoJSON；404 视为无数据。
type HTTPSource struct {
	base   string
	client *http.Client
}

func NewHTTPSource(base string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSource{base: strings.TrimRight(base, "/"), client: &http.Client{Timeout: timeout}}
}

func (h *HTTPSource) Name() string { return "http" }

func (h *HTTPSource) FetchRecords(ctx context.Context) ([]village.Record, error) {
	b, err := h.get(ctx, "/macro")
	if err != nil {
		return nil, err
	}
	return DecodeRecords(b)
}

func (h *HTTPSource) FetchBoundaries(ctx context.Context) ([]byte, error) { return h.get(ctx, "/boundaries") }

func (h *HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
