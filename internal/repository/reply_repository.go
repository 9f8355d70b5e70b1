package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/threadboard/internal/model"
)

type ReplyRepository interface {
	Create(ctx context.Context, reply *model.Reply) error
	GetByID(ctx context.Context, id string) (*model.Reply, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	CountByPost(ctx context.Context, postID string) (int64, error)
}

type replyRepository struct {
	db *gorm.DB
}

func NewReplyRepository(db *gorm.DB) ReplyRepository { return &replyRepository{db: db} }

func (r *replyRepository) Create(ctx context.Context, reply *model.Reply) error {
	if err := r.db.WithContext(ctx).Create(reply).Error; err != nil {
		return err
	}
	reply.VotedBy = []string{}
	return nil
}

func (r *replyRepository) GetByID(ctx context.Context, id string) (*model.Reply, error) {
	db := r.db.WithContext(ctx)
	var reply model.Reply
	if err := db.Where("id = ?", id).First(&reply).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	voters, err := loadVoters(db, model.TargetReply, []string{reply.ID})
	if err != nil {
		return nil, err
	}
	reply.VotedBy = votedByOrEmpty(voters, reply.ID)
	return &reply, nil
}

func (r *replyRepository) UpdateContent(ctx context.Context, id, content string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Reply{}).
		Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除回复及其投票
func (r *replyRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("target_type = ? AND target_id = ?", model.TargetReply, id).
			Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Reply{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *replyRepository) CountByPost(ctx context.Context, postID string) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Reply{}).Where("post_id = ?", postID).Count(&cnt).Error
	return cnt, err
}
