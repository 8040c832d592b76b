package redis

import (
	"context"
	"fmt"

	"github.com/notes-bin/imageshare/internal/model"

	"github.com/redis/go-redis/v9"
)

// 全局排行榜的 sorted set key，member 为图片 ID，score 为浏览次数
const rankingKey = "image_ranking"

func viewsKey(imageID string) string {
	return fmt.Sprintf("image:%s:views", imageID)
}

// RecordView 一次 MULTI/EXEC 同时增加浏览计数和排行榜分数，
// 两个计数不会出现一个成功一个失败。返回最新浏览次数。
func (c *Client) RecordView(ctx context.Context, imageID string) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, viewsKey(imageID))
		pipe.ZIncrBy(ctx, rankingKey, 1, imageID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// TotalViews 读取浏览计数，未浏览过的图片返回 0
func (c *Client) TotalViews(ctx context.Context, imageID string) (int64, error) {
	n, err := c.Get(ctx, viewsKey(imageID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

// TopViewed 按分数从高到低取前 n 个图片 ID
func (c *Client) TopViewed(ctx context.Context, n int) ([]string, error) {
	return c.ZRevRange(ctx, rankingKey, 0, int64(n-1)).Result()
}

// RankedIDs 排行榜里的所有图片 ID，供后台清理使用
func (c *Client) RankedIDs(ctx context.Context) ([]string, error) {
	return c.ZRange(ctx, rankingKey, 0, -1).Result()
}

// RemoveImage 删除一张图片的浏览计数和排行榜条目
func (c *Client) RemoveImage(ctx context.Context, imageID string) error {
	_, err := c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, viewsKey(imageID))
		pipe.ZRem(ctx, rankingKey, imageID)
		return nil
	})
	return err
}

// SortByRanking 把查询结果按排行榜顺序重排。
// 数据库按 ID 集合查询时不保证顺序，这里以 ids 的次序为准，
// 不在 ids 里的记录被丢弃。
func SortByRanking(ids []string, images []model.Image) []model.Image {
	byID := make(map[string]model.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	ordered := make([]model.Image, 0, len(images))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			ordered = append(ordered, img)
		}
	}
	return ordered
}
