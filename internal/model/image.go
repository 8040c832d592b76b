package model

import "time"

type Image struct {
	ID          string    `json:"id"`          // UUID，创建时生成
	UserID      string    `json:"user_id"`     // 所属用户 ID
	Title       string    `json:"title"`       // 标题
	Slug        string    `json:"slug"`        // 由标题生成，创建后不变
	URL         string    `json:"url"`         // 远程图片地址
	URLUser     string    `json:"url_user"`    // 用户自定义跳转地址，可选
	Description string    `json:"description"` // 描述
	Filename    string    `json:"filename"`    // 存储文件名
	IsPrivate   bool      `json:"is_private"`  // 是否私有
	CreatedAt   time.Time `json:"created_at"`  // 创建时间
}
