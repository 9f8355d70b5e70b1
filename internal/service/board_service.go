package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/internal/cache"
	"github.com/d60-Lab/threadboard/internal/model"
	"github.com/d60-Lab/threadboard/internal/repository"
	"github.com/d60-Lab/threadboard/pkg/logger"
)

// BoardLimit getAll 最多返回的帖子数
const BoardLimit = 100

// BoardService 帖子与回复服务；身份由调用方显式传入
type BoardService interface {
	GetAll(ctx context.Context) ([]*model.Post, error)

	CreatePost(ctx context.Context, caller auth.Identity, content string) (*model.Post, error)
	VotePost(ctx context.Context, caller auth.Identity, postID, vote string) (*model.Post, error)
	EditPost(ctx context.Context, caller auth.Identity, postID, content string) (string, error)
	DeletePost(ctx context.Context, caller auth.Identity, postID string) (string, error)

	CreateReply(ctx context.Context, caller auth.Identity, postID, replyingTo, content string) (*model.Reply, error)
	VoteReply(ctx context.Context, caller auth.Identity, replyID, vote string) (*model.Reply, error)
	EditReply(ctx context.Context, caller auth.Identity, replyID, content string) (string, error)
	DeleteReply(ctx context.Context, caller auth.Identity, replyID string) (string, error)
}

type boardService struct {
	posts   repository.PostRepository
	replies repository.ReplyRepository
	votes   repository.VoteRepository
	cache   *cache.BoardCache
	events  *EventDispatcher
}

// NewBoardService cache 与 events 可为 nil
func NewBoardService(
	posts repository.PostRepository,
	replies repository.ReplyRepository,
	votes repository.VoteRepository,
	boardCache *cache.BoardCache,
	events *EventDispatcher,
) BoardService {
	return &boardService{posts: posts, replies: replies, votes: votes, cache: boardCache, events: events}
}

func (s *boardService) GetAll(ctx context.Context) ([]*model.Post, error) {
	if cached, ok := s.cache.Get(ctx); ok {
		return cached, nil
	}
	// 先取代数再回源，回源期间若有写入则不写回缓存
	gen := s.cache.Generation(ctx)
	posts, err := s.posts.ListTop(ctx, BoardLimit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	s.cache.Set(ctx, gen, posts)
	return posts, nil
}

func (s *boardService) CreatePost(ctx context.Context, caller auth.Identity, content string) (*model.Post, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	now := time.Now()
	post := &model.Post{
		ID:        uuid.New().String(),
		AuthorID:  caller.UserID,
		Username:  caller.Username,
		Image:     caller.ImageURL,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.changed(ctx, Event{Type: EventPostCreated, PostID: post.ID, ActorID: caller.UserID})
	logger.Info("post created", zap.String("post", post.ID), zap.String("author", caller.UserID))
	return post, nil
}

func (s *boardService) VotePost(ctx context.Context, caller auth.Identity, postID, vote string) (*model.Post, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	value, err := parseVote(vote)
	if err != nil {
		return nil, err
	}
	if err := s.votes.Cast(ctx, model.TargetPost, postID, caller.UserID, value); err != nil {
		return nil, translate(err, "vote post")
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, translate(err, "reload post")
	}
	s.changed(ctx, Event{Type: EventPostVoted, PostID: post.ID, ActorID: caller.UserID, Score: &post.Score})
	return post, nil
}

func (s *boardService) EditPost(ctx context.Context, caller auth.Identity, postID, content string) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return "", translate(err, "load post")
	}
	if !post.OwnedBy(caller.UserID) {
		return "", ErrForbidden
	}
	if err := validateContent(content); err != nil {
		return "", err
	}
	if err := s.posts.UpdateContent(ctx, postID, content); err != nil {
		return "", translate(err, "update post")
	}
	s.changed(ctx, Event{Type: EventPostUpdated, PostID: postID, ActorID: caller.UserID})
	return "Post updated", nil
}

func (s *boardService) DeletePost(ctx context.Context, caller auth.Identity, postID string) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return "", translate(err, "load post")
	}
	if !post.OwnedBy(caller.UserID) {
		return "", ErrForbidden
	}
	removed, err := s.posts.DeleteCascade(ctx, postID)
	if err != nil {
		return "", translate(err, "delete post")
	}
	s.changed(ctx, Event{Type: EventPostDeleted, PostID: postID, ActorID: caller.UserID})
	logger.Info("post deleted", zap.String("post", postID), zap.Int64("replies", removed))
	return deletePostMessage(removed), nil
}

func (s *boardService) CreateReply(ctx context.Context, caller auth.Identity, postID, replyingTo, content string) (*model.Reply, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := validateContent(content); err != nil {
		return nil, err
	}
	exists, err := s.posts.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	now := time.Now()
	reply := &model.Reply{
		ID:         uuid.New().String(),
		PostID:     postID,
		ReplyingTo: replyingTo,
		AuthorID:   caller.UserID,
		Username:   caller.Username,
		Image:      caller.ImageURL,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}
	s.changed(ctx, Event{Type: EventReplyCreated, PostID: postID, ReplyID: reply.ID, ActorID: caller.UserID})
	return reply, nil
}

func (s *boardService) VoteReply(ctx context.Context, caller auth.Identity, replyID, vote string) (*model.Reply, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthenticated
	}
	value, err := parseVote(vote)
	if err != nil {
		return nil, err
	}
	if err := s.votes.Cast(ctx, model.TargetReply, replyID, caller.UserID, value); err != nil {
		return nil, translate(err, "vote reply")
	}
	reply, err := s.replies.GetByID(ctx, replyID)
	if err != nil {
		return nil, translate(err, "reload reply")
	}
	s.changed(ctx, Event{Type: EventReplyVoted, PostID: reply.PostID, ReplyID: reply.ID, ActorID: caller.UserID, Score: &reply.Score})
	return reply, nil
}

func (s *boardService) EditReply(ctx context.Context, caller auth.Identity, replyID, content string) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	reply, err := s.replies.GetByID(ctx, replyID)
	if err != nil {
		return "", translate(err, "load reply")
	}
	if !reply.OwnedBy(caller.UserID) {
		return "", ErrForbidden
	}
	if err := validateContent(content); err != nil {
		return "", err
	}
	if err := s.replies.UpdateContent(ctx, replyID, content); err != nil {
		return "", translate(err, "update reply")
	}
	s.changed(ctx, Event{Type: EventReplyUpdated, PostID: reply.PostID, ReplyID: replyID, ActorID: caller.UserID})
	return "Reply updated", nil
}

func (s *boardService) DeleteReply(ctx context.Context, caller auth.Identity, replyID string) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthenticated
	}
	reply, err := s.replies.GetByID(ctx, replyID)
	if err != nil {
		return "", translate(err, "load reply")
	}
	if !reply.OwnedBy(caller.UserID) {
		return "", ErrForbidden
	}
	if err := s.replies.Delete(ctx, replyID); err != nil {
		return "", translate(err, "delete reply")
	}
	s.changed(ctx, Event{Type: EventReplyDeleted, PostID: reply.PostID, ReplyID: replyID, ActorID: caller.UserID})
	return "Reply deleted", nil
}

// changed 写成功后失效缓存并发事件
func (s *boardService) changed(ctx context.Context, ev Event) {
	s.cache.Invalidate(ctx)
	s.events.Enqueue(ev)
}

func translate(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicateVote):
		return ErrAlreadyVoted
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func deletePostMessage(removed int64) string {
	switch removed {
	case 0:
		return "Post deleted, it had no replies"
	case 1:
		return "Post deleted along with 1 reply"
	default:
		return fmt.Sprintf("Post deleted along with %d replies", removed)
	}
}
