// Package pagination 固定页大小的分页计算。
// 页码参数的回退规则：非数字回到第 1 页，
// 数字越界时整页模式回到最后一页，片段模式返回空页。
package pagination

import (
	"errors"
	"strconv"
)

// ErrEmptyPage 片段模式下页码越界
var ErrEmptyPage = errors.New("page out of range")

type Pager struct {
	total int
	size  int
}

func New(total, size int) Pager {
	if size < 1 {
		size = 1
	}
	if total < 0 {
		total = 0
	}
	return Pager{total: total, size: size}
}

// NumPages 至少为 1，空结果集也有第 1 页
func (p Pager) NumPages() int {
	if p.total == 0 {
		return 1
	}
	return (p.total + p.size - 1) / p.size
}

// Resolve 把请求里的页码参数映射为有效页码。
// fragment 为 true 时越界返回 ErrEmptyPage 而不是最后一页。
func (p Pager) Resolve(raw string, fragment bool) (int, error) {
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 1, nil
	}
	if page < 1 || page > p.NumPages() {
		if fragment {
			return 0, ErrEmptyPage
		}
		return p.NumPages(), nil
	}
	return page, nil
}

// Bounds 返回页对应的 offset 和 limit
func (p Pager) Bounds(page int) (offset, limit int) {
	return (page - 1) * p.size, p.size
}
