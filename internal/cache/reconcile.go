package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/notes-bin/imageshare/internal/redis"
)

// IDChecker 过滤仍然存在的图片 ID
type IDChecker interface {
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// StartRankingReconcile 周期清理排行榜里已删除图片的残留计数。
// 删除操作本身不动 Redis，计数和记录之间的最终一致由这里保证。
func StartRankingReconcile(ctx context.Context, redis *redis.Client, images IDChecker, interval int) {
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := redis.RankedIDs(ctx)
			if err != nil {
				slog.Error("Failed to read ranking", "error", err)
				continue
			}
			if len(ids) == 0 {
				continue
			}
			existing, err := images.ExistingIDs(ctx, ids)
			if err != nil {
				slog.Error("Failed to check ranking ids", "error", err)
				continue
			}
			known := make(map[string]bool, len(existing))
			for _, id := range existing {
				known[id] = true
			}
			removed := 0
			for _, id := range ids {
				if known[id] {
					continue
				}
				if err := redis.RemoveImage(ctx, id); err != nil {
					slog.Error("Failed to prune ranking entry", "image_id", id, "error", err)
					continue
				}
				removed++
			}
			if removed > 0 {
				slog.Info("Pruned ranking entries", "removed", removed)
			}
		}
	}
}
