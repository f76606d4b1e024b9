package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
)

const cleanupInterval = 60 * time.Minute

// StartCleanupWorker 启动定时清理协程
// 启动时执行一次清理，随后每 60 分钟执行一次，ctx 结束时退出
func (c Core) StartCleanupWorker(ctx context.Context) {
	if c.retainDays <= 0 {
		slog.Info("session cleanup disabled")
		return
	}
	slog.Info("session cleanup worker started", "retain_days", c.retainDays)

	c.runCleanup(ctx)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runCleanup(ctx)
		}
	}
}

func (c Core) runCleanup(ctx context.Context) {
	n, err := c.CleanupExpired(ctx, time.Now())
	if err != nil {
		slog.WarnContext(ctx, "failed to cleanup expired sessions", "err", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "expired session cleanup completed",
			"retain_days", c.retainDays,
			"sessions_deleted", n,
		)
	}
}

// CleanupExpired 删除开始时间早于 now - retainDays 的会话
func (c Core) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	if c.retainDays <= 0 {
		return 0, nil
	}
	cutoff := now.AddDate(0, 0, -c.retainDays)
	n, err := c.store.Session().DelBatch(ctx, orm.Where("started_at < ?", orm.Time{Time: cutoff}))
	if err != nil {
		return 0, reason.ErrDB.Withf(`DelBatch cutoff[%s] err[%s]`, cutoff.Format(time.DateTime), err.Error())
	}
	return n, nil
}
