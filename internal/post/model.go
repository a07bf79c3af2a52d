package post

import (
	"time"

	"github.com/MalikAqeelArshad/blog-crud/internal/like"
	"github.com/MalikAqeelArshad/blog-crud/internal/user"
)

// PerPage est la taille fixe d'une page de la liste
const PerPage = 10

type Post struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	CreatedAt   time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time   `json:"updated_at"`
	UserID      string      `json:"user_id" gorm:"index;not null"`
	User        user.User   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Title       string      `json:"title" gorm:"size:255;not null"`
	Description string      `json:"description" gorm:"type:text;not null"`
	IsPublic    bool        `json:"is_public" gorm:"not null;index"`
	Likes       []like.Like `json:"likes" gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`

	// Champs calculés à la lecture
	Author    user.Summary `json:"author" gorm:"-"`
	LikeCount int          `json:"like_count" gorm:"-"`
	LikedByMe bool         `json:"liked_by_me" gorm:"-"`
}

func (Post) TableName() string {
	return "posts"
}

// VisibleTo : un post est visible s'il est public ou si viewer en est l'auteur
func (p Post) VisibleTo(viewer user.User) bool {
	return p.IsPublic || p.UserID == viewer.ID
}

func (p *Post) enrich(viewer user.User) {
	if p.User.ID != "" {
		p.Author = p.User.Summary()
	}
	if p.Likes == nil {
		p.Likes = []like.Like{}
	}
	p.LikeCount = len(p.Likes)
	p.LikedByMe = false
	for _, l := range p.Likes {
		if l.UserID == viewer.ID {
			p.LikedByMe = true
			break
		}
	}
}

type Filters struct {
	Search string `json:"search,omitempty"`
	Author string `json:"author,omitempty"`
	Date   string `json:"date,omitempty"`
}

type ListResult struct {
	Items      []Post  `json:"items"`
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	TotalCount int64   `json:"total_count"`
	LastPage   int     `json:"last_page"`
	Filters    Filters `json:"filters"`
}
