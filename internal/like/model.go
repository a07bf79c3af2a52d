package like

import (
	"time"
)

type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id" gorm:"not null;uniqueIndex:idx_like_user_post"`
	PostID    uint      `json:"post_id" gorm:"not null;index;uniqueIndex:idx_like_user_post"`
}

type LikeStatus struct {
	PostID    uint  `json:"post_id"`
	LikeCount int64 `json:"like_count"`
	IsLiked   bool  `json:"is_liked"`
}

func (Like) TableName() string {
	return "likes"
}
