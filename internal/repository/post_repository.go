package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/threadboard/internal/model"
)

// PostRepository 帖子仓储接口
type PostRepository interface {
	// Create 创建帖子
	Create(ctx context.Context, post *model.Post) error

	// GetByID 查询单个帖子（含投票者，不含回复）
	GetByID(ctx context.Context, id string) (*model.Post, error)

	// Exists 判断帖子是否存在
	Exists(ctx context.Context, id string) (bool, error)

	// ListTop 按分数降序取前 limit 个帖子，回复按创建时间升序
	ListTop(ctx context.Context, limit int) ([]*model.Post, error)

	// UpdateContent 覆盖帖子内容
	UpdateContent(ctx context.Context, id, content string) error

	// DeleteCascade 先删回复再删帖子，返回删除的回复数
	DeleteCascade(ctx context.Context, id string) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if err := r.db.WithContext(ctx).Omit("Replies").Create(post).Error; err != nil {
		return err
	}
	post.VotedBy = []string{}
	post.Replies = []*model.Reply{}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	db := r.db.WithContext(ctx)
	var post model.Post
	if err := db.Where("id = ?", id).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	voters, err := loadVoters(db, model.TargetPost, []string{post.ID})
	if err != nil {
		return nil, err
	}
	post.VotedBy = votedByOrEmpty(voters, post.ID)
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *postRepository) ListTop(ctx context.Context, limit int) ([]*model.Post, error) {
	db := r.db.WithContext(ctx)
	var posts []*model.Post
	err := db.
		Preload("Replies", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Order("score DESC, created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return []*model.Post{}, nil
	}

	// 批量加载投票者，避免 N+1
	postIDs := make([]string, 0, len(posts))
	var replyIDs []string
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
		for _, rp := range p.Replies {
			replyIDs = append(replyIDs, rp.ID)
		}
	}
	postVoters, err := loadVoters(db, model.TargetPost, postIDs)
	if err != nil {
		return nil, err
	}
	replyVoters, err := loadVoters(db, model.TargetReply, replyIDs)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		p.VotedBy = votedByOrEmpty(postVoters, p.ID)
		if p.Replies == nil {
			p.Replies = []*model.Reply{}
		}
		for _, rp := range p.Replies {
			rp.VotedBy = votedByOrEmpty(replyVoters, rp.ID)
		}
	}
	return posts, nil
}

func (r *postRepository) UpdateContent(ctx context.Context, id, content string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Post{}).
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

func (r *postRepository) DeleteCascade(ctx context.Context, id string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var replyIDs []string
		if err := tx.Model(&model.Reply{}).Where("post_id = ?", id).Pluck("id", &replyIDs).Error; err != nil {
			return err
		}
		if len(replyIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?", model.TargetReply, replyIDs).
				Delete(&model.Vote{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("post_id = ?", id).Delete(&model.Reply{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected

		if err := tx.Where("target_type = ? AND target_id = ?", model.TargetPost, id).
			Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		res = tx.Where("id = ?", id).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
