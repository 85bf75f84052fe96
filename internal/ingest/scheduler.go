// 包 ingest：调度每周的离线刷新任务，运行在服务进程内的后台协程
package ingest

import (
	"context"
	"os"
	"strconv"
	"time"

	"desa-api/internal/logger"
)

// Job：一次刷新任务
type Job func(ctx context.Context) error

// nextWeekdayAt：计算 now 之后第一个 wd 当天 hour 整点的时间点
// 约束：基于 loc 时区；当天整点已过时顺延一周
func nextWeekdayAt(now time.Time, loc *time.Location, wd time.Weekday, hour int) time.Time {
	now = now.In(loc)
	for i := 0; i <= 7; i++ {
		d := now.AddDate(0, 0, i)
		if d.Weekday() != wd {
			continue
		}
		t := time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
		if t.After(now) {
			return t
		}
	}
	d := now.AddDate(0, 0, 7)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc)
}

// 文档注释：按西印度尼西亚时间（Asia/Jakarta）每周一 3:00 执行刷新
// 背景：村级普查数据按批次更新，周级刷新即可；错误由日志记录，任务继续调度。
// 约束：INDEX_REFRESH_HOUR 覆盖小时（0-23）；时区数据缺失时使用 UTC+7；ctx 取消后停止。
func StartWeekly(ctx context.Context, name string, job Job) {
	l := logger.L()
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}
	hour := 3
	if h := os.Getenv("INDEX_REFRESH_HOUR"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n >= 0 && n < 24 {
			hour = n
		}
	}
	next := nextWeekdayAt(time.Now(), loc, time.Monday, hour)
	l.Debug("refresh_scheduled", "job", name, "next", next)
	go func() {
		for {
			t := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			l.Info("refresh_start", "job", name)
			if err := job(ctx); err != nil {
				l.Error("refresh_error", "job", name, "err", err)
			} else {
				l.Info("refresh_done", "job", name)
			}
			next = nextWeekdayAt(time.Now(), loc, time.Monday, hour)
		}
	}()
}
