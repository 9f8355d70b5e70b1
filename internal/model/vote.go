package model

import "time"

// TargetType 投票对象类型
type TargetType string

const (
	TargetPost  TargetType = "post"
	TargetReply TargetType = "reply"
)

// Vote 一次性投票记录；(target_type, target_id, voter_id) 复合唯一键保证同一用户对同一对象只投一次
type Vote struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	TargetType TargetType `gorm:"type:varchar(8);not null;uniqueIndex:ux_vote_target_voter"`
	TargetID   string     `gorm:"type:varchar(36);not null;uniqueIndex:ux_vote_target_voter"`
	VoterID    string     `gorm:"type:varchar(64);not null;uniqueIndex:ux_vote_target_voter"`
	Value      int8       `gorm:"not null"`
	CreatedAt  time.Time
}

func (Vote) TableName() string { return "votes" }
