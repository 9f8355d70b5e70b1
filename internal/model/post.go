package model

import "time"

// Post 顶层帖子
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `json:"authorId" gorm:"type:varchar(64);index:idx_post_author;not null"`
	Username  string    `json:"username" gorm:"type:varchar(64);not null"`
	Image     string    `json:"image" gorm:"type:text"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Score     int64     `json:"score" gorm:"index:idx_post_score;not null;default:0"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	VotedBy []string `json:"votedBy" gorm:"-"`
	Replies []*Reply `json:"replies" gorm:"foreignKey:PostID"`
}

func (Post) TableName() string { return "posts" }

// OwnedBy 以不可变的用户 ID 判断归属
func (p *Post) OwnedBy(userID string) bool { return userID != "" && p.AuthorID == userID }
