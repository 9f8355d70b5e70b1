package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/threadboard/internal/model"
)

type VoteRepository interface {
	// Cast 在一个事务内写入投票并累加分数；重复投票返回 ErrDuplicateVote，目标不存在返回 ErrNotFound
	Cast(ctx context.Context, target model.TargetType, targetID, voterID string, value int8) error
	// Voters 批量查询每个对象的投票者（按投票时间升序）
	Voters(ctx context.Context, target model.TargetType, targetIDs []string) (map[string][]string, error)
}

type voteRepository struct{ db *gorm.DB }

func NewVoteRepository(db *gorm.DB) VoteRepository { return &voteRepository{db: db} }

func (r *voteRepository) Cast(ctx context.Context, target model.TargetType, targetID, voterID string, value int8) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v := &model.Vote{
			ID:         uuid.New().String(),
			TargetType: target,
			TargetID:   targetID,
			VoterID:    voterID,
			Value:      value,
			CreatedAt:  time.Now(),
		}
		// 唯一键冲突即已投过票，不报错只看影响行数
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(v)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateVote
		}

		res = tx.Table(tableFor(target)).
			Where("id = ?", targetID).
			Updates(map[string]any{
				"score":      gorm.Expr("score + ?", value),
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 回滚刚插入的投票
			return ErrNotFound
		}
		return nil
	})
}

func (r *voteRepository) Voters(ctx context.Context, target model.TargetType, targetIDs []string) (map[string][]string, error) {
	return loadVoters(r.db.WithContext(ctx), target, targetIDs)
}

func loadVoters(db *gorm.DB, target model.TargetType, targetIDs []string) (map[string][]string, error) {
	res := make(map[string][]string, len(targetIDs))
	if len(targetIDs) == 0 {
		return res, nil
	}
	var votes []model.Vote
	err := db.Select("target_id", "voter_id").
		Where("target_type = ? AND target_id IN ?", target, targetIDs).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		res[v.TargetID] = append(res[v.TargetID], v.VoterID)
	}
	return res, nil
}

func tableFor(target model.TargetType) string {
	if target == model.TargetReply {
		return model.Reply{}.TableName()
	}
	return model.Post{}.TableName()
}

// votedByOrEmpty 保证 JSON 输出为 [] 而不是 null
func votedByOrEmpty(voters map[string][]string, id string) []string {
	if v, ok := voters[id]; ok {
		return v
	}
	return []string{}
}
