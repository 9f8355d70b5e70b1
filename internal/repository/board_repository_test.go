package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/threadboard/internal/model"
	"github.com/d60-Lab/threadboard/internal/repository"
	"github.com/d60-Lab/threadboard/internal/testutil"
)

type repos struct {
	posts   repository.PostRepository
	replies repository.ReplyRepository
	votes   repository.VoteRepository
}

func setup(t *testing.T) repos {
	db := testutil.NewTestDB(t)
	return repos{
		posts:   repository.NewPostRepository(db),
		replies: repository.NewReplyRepository(db),
		votes:   repository.NewVoteRepository(db),
	}
}

func newPost(author, content string, createdAt time.Time) *model.Post {
	return &model.Post{ID: uuid.NewString(), AuthorID: author, Username: author, Content: content, CreatedAt: createdAt}
}

func newReply(postID, author string, createdAt time.Time) *model.Reply {
	return &model.Reply{
		ID: uuid.NewString(), PostID: postID, AuthorID: author, Username: author,
		ReplyingTo: "someone", Content: "reply from " + author, CreatedAt: createdAt,
	}
}

func TestPostCreateAndGet(t *testing.T) {
	r := setup(t)
	ctx := context.Background()

	p := newPost("u1", "hello", time.Now())
	require.NoError(t, r.posts.Create(ctx, p))
	assert.Equal(t, []string{}, p.VotedBy)

	got, err := r.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, int64(0), got.Score)
	assert.Empty(t, got.VotedBy)

	_, err = r.posts.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ok, err := r.posts.Exists(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListTopOrdering(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	low := newPost("u1", "low post", base)
	high := newPost("u2", "high post", base.Add(time.Minute))
	mid := newPost("u3", "mid post", base.Add(2*time.Minute))
	for _, p := range []*model.Post{low, high, mid} {
		require.NoError(t, r.posts.Create(ctx, p))
	}
	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, high.ID, "v1", 1))
	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, high.ID, "v2", 1))
	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, mid.ID, "v1", 1))
	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, low.ID, "v1", -1))

	// 回复乱序插入
	late := newReply(high.ID, "u1", base.Add(30*time.Minute))
	early := newReply(high.ID, "u3", base.Add(10*time.Minute))
	require.NoError(t, r.replies.Create(ctx, late))
	require.NoError(t, r.replies.Create(ctx, early))
	require.NoError(t, r.votes.Cast(ctx, model.TargetReply, early.ID, "v9", 1))

	posts, err := r.posts.ListTop(ctx, 100)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{high.ID, mid.ID, low.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Equal(t, []string{"v1", "v2"}, posts[0].VotedBy)
	assert.Equal(t, int64(-1), posts[2].Score)

	require.Len(t, posts[0].Replies, 2)
	assert.Equal(t, early.ID, posts[0].Replies[0].ID)
	assert.Equal(t, late.ID, posts[0].Replies[1].ID)
	assert.Equal(t, []string{"v9"}, posts[0].Replies[0].VotedBy)
	assert.Equal(t, []string{}, posts[0].Replies[1].VotedBy)
	assert.Equal(t, []*model.Reply{}, posts[1].Replies)
}

func TestListTopLimit(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, r.posts.Create(ctx, newPost("u", fmt.Sprintf("post %d", i), time.Now())))
	}
	posts, err := r.posts.ListTop(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, posts, 3)

	empty := setup(t)
	posts, err = empty.posts.ListTop(ctx, 100)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}

func TestVoteCast(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	p := newPost("u1", "votable", time.Now())
	require.NoError(t, r.posts.Create(ctx, p))

	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, p.ID, "a", 1))
	err := r.votes.Cast(ctx, model.TargetPost, p.ID, "a", -1)
	assert.ErrorIs(t, err, repository.ErrDuplicateVote)

	got, err := r.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Score)
	assert.Equal(t, []string{"a"}, got.VotedBy)

	err = r.votes.Cast(ctx, model.TargetPost, "missing", "a", 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	voters, err := r.votes.Voters(ctx, model.TargetPost, []string{"missing"})
	require.NoError(t, err)
	assert.Empty(t, voters, "vote on a missing target must be rolled back")
}

func TestVoteTargetsAreIndependent(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	p := newPost("u1", "parent", time.Now())
	require.NoError(t, r.posts.Create(ctx, p))
	rp := newReply(p.ID, "u2", time.Now())
	require.NoError(t, r.replies.Create(ctx, rp))

	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, p.ID, "a", 1))
	require.NoError(t, r.votes.Cast(ctx, model.TargetReply, rp.ID, "a", -1))

	got, err := r.replies.GetByID(ctx, rp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), got.Score)
	assert.Equal(t, []string{"a"}, got.VotedBy)
}

func TestUpdateContent(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	p := newPost("u1", "before", time.Now())
	require.NoError(t, r.posts.Create(ctx, p))
	rp := newReply(p.ID, "u2", time.Now())
	require.NoError(t, r.replies.Create(ctx, rp))

	require.NoError(t, r.posts.UpdateContent(ctx, p.ID, "after"))
	require.NoError(t, r.replies.UpdateContent(ctx, rp.ID, "edited reply"))
	assert.ErrorIs(t, r.posts.UpdateContent(ctx, "missing", "x"), repository.ErrNotFound)
	assert.ErrorIs(t, r.replies.UpdateContent(ctx, "missing", "x"), repository.ErrNotFound)

	gp, err := r.posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", gp.Content)
	gr, err := r.replies.GetByID(ctx, rp.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited reply", gr.Content)
}

func TestDeleteCascade(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	p := newPost("u1", "doomed", time.Now())
	other := newPost("u1", "survivor", time.Now())
	require.NoError(t, r.posts.Create(ctx, p))
	require.NoError(t, r.posts.Create(ctx, other))

	var replyIDs []string
	for i := 0; i < 3; i++ {
		rp := newReply(p.ID, "u2", time.Now())
		require.NoError(t, r.replies.Create(ctx, rp))
		require.NoError(t, r.votes.Cast(ctx, model.TargetReply, rp.ID, "v", 1))
		replyIDs = append(replyIDs, rp.ID)
	}
	keep := newReply(other.ID, "u2", time.Now())
	require.NoError(t, r.replies.Create(ctx, keep))
	require.NoError(t, r.votes.Cast(ctx, model.TargetPost, p.ID, "v", 1))

	n, err := r.posts.DeleteCascade(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = r.posts.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	for _, id := range replyIDs {
		_, err = r.replies.GetByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}
	voters, err := r.votes.Voters(ctx, model.TargetReply, replyIDs)
	require.NoError(t, err)
	assert.Empty(t, voters)

	cnt, err := r.replies.CountByPost(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cnt)

	// 重试是安全的
	_, err = r.posts.DeleteCascade(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteReply(t *testing.T) {
	r := setup(t)
	ctx := context.Background()
	p := newPost("u1", "parent", time.Now())
	require.NoError(t, r.posts.Create(ctx, p))
	rp := newReply(p.ID, "u2", time.Now())
	require.NoError(t, r.replies.Create(ctx, rp))

	require.NoError(t, r.replies.Delete(ctx, rp.ID))
	assert.ErrorIs(t, r.replies.Delete(ctx, rp.ID), repository.ErrNotFound)

	_, err := r.posts.GetByID(ctx, p.ID)
	assert.NoError(t, err)
}
