package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notes-bin/imageshare/internal/model"
)

func TestSortByRanking(t *testing.T) {
	images := []model.Image{
		{ID: "a", Title: "A"},
		{ID: "c", Title: "C"},
		{ID: "b", Title: "B"},
	}

	// 数据库返回无序，按榜单次序重排
	ordered := SortByRanking([]string{"c", "a", "b"}, images)
	ids := make([]string, len(ordered))
	for i, img := range ordered {
		ids[i] = img.ID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestSortByRankingDropsUnknown(t *testing.T) {
	images := []model.Image{{ID: "a"}}

	// 榜单里有已删除或私有的 ID 时直接跳过
	ordered := SortByRanking([]string{"x", "a", "y"}, images)
	assert.Len(t, ordered, 1)
	assert.Equal(t, "a", ordered[0].ID)
}

func TestSortByRankingEmpty(t *testing.T) {
	assert.Empty(t, SortByRanking(nil, nil))
	assert.Empty(t, SortByRanking([]string{"a"}, nil))
}
