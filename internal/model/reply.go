package model

import "time"

// Reply 帖子下的一级回复
type Reply struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	PostID     string    `json:"postId" gorm:"type:varchar(36);index:idx_reply_post_created;not null"`
	ReplyingTo string    `json:"replyingTo" gorm:"type:varchar(64)"`
	AuthorID   string    `json:"authorId" gorm:"type:varchar(64);index:idx_reply_author;not null"`
	Username   string    `json:"username" gorm:"type:varchar(64);not null"`
	Image      string    `json:"image" gorm:"type:text"`
	Content    string    `json:"content" gorm:"type:text;not null"`
	Score      int64     `json:"score" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"createdAt" gorm:"index:idx_reply_post_created"`
	UpdatedAt  time.Time `json:"updatedAt"`

	VotedBy []string `json:"votedBy" gorm:"-"`
}

func (Reply) TableName() string { return "replies" }

func (r *Reply) OwnedBy(userID string) bool { return userID != "" && r.AuthorID == userID }
