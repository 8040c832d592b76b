// Package fetch 负责校验外部图片地址并同步下载图片内容。
// 下载失败按类别区分，由上层映射为表单错误。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 校验与下载失败的类别
var (
	ErrBadExtension = errors.New("the given URL does not match valid image extensions")
	ErrBadStatus    = errors.New("remote server returned a non-success status")
	ErrTooLarge     = errors.New("remote image exceeds the size limit")
	ErrNotImage     = errors.New("remote content is not a supported image")
)

var validExtensions = []string{"jpg", "jpeg", "png"}

// ExtensionOf 取 URL 路径的扩展名并校验，网络访问前调用
func ExtensionOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrBadExtension
	}
	idx := strings.LastIndex(u.Path, ".")
	if idx < 0 {
		return "", ErrBadExtension
	}
	ext := strings.ToLower(u.Path[idx+1:])
	for _, valid := range validExtensions {
		if ext == valid {
			return ext, nil
		}
	}
	return "", ErrBadExtension
}

// Filename 按标题生成存储文件名 f<slug>.<ext>
func Filename(title, ext string) string {
	return fmt.Sprintf("f%s.%s", Slugify(title), ext)
}

// FilenameWithID 文件名冲突时追加记录 ID 前 8 位
func FilenameWithID(title, ext, id string) string {
	suffix := id
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("f%s-%s.%s", Slugify(title), suffix, ext)
}

type Fetcher struct {
	client  *http.Client
	maxSize int64
}

func NewFetcher(timeout time.Duration, maxSize int64) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		maxSize: maxSize,
	}
}

// Fetch 阻塞下载远程图片，整个响应体读入内存。
// 超出 maxSize 返回 ErrTooLarge，非 2xx 返回 ErrBadStatus，
// 内容嗅探不是图片返回 ErrNotImage。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	// 多读一个字节判断是否超限
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, ErrTooLarge
	}

	if !isImageMIME(detectMIME(data)) {
		return nil, ErrNotImage
	}
	return data, nil
}

func detectMIME(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}

func isImageMIME(mime string) bool {
	return mime == "image/jpeg" || mime == "image/png"
}
