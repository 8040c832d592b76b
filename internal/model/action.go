package model

import "time"

// 动作动词
const (
	VerbShared = "shared"
	VerbLiked  = "liked"
)

// Action 用户行为记录，只追加不修改
type Action struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Verb      string    `json:"verb"`
	TargetID  string    `json:"target_id"` // 指向的图片 ID
	CreatedAt time.Time `json:"created_at"`
}

// Profile 用户资料，提交图片后标记为活跃
type Profile struct {
	UserID string `json:"user_id"`
	Active bool   `json:"active"`
}
