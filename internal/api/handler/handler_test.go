package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/threadboard/internal/api/handler"
	"github.com/d60-Lab/threadboard/internal/api/router"
	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/internal/model"
	"github.com/d60-Lab/threadboard/internal/repository"
	"github.com/d60-Lab/threadboard/internal/service"
	"github.com/d60-Lab/threadboard/internal/testutil"
)

const (
	secret = "handler-test-secret"
	issuer = "threadboard"
)

type envelope struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
	Data    json.RawMessage   `json:"data"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t)
	svc := service.NewBoardService(
		repository.NewPostRepository(db),
		repository.NewReplyRepository(db),
		repository.NewVoteRepository(db),
		nil, nil,
	)
	engine := router.Setup(handler.NewHandler(svc), router.Options{
		Verifier: auth.NewVerifier(secret, issuer),
	})

	iss := auth.NewIssuer(secret, issuer, time.Hour)
	tokens := map[string]string{}
	for _, id := range []auth.Identity{testutil.Alice, testutil.Bob, testutil.Carol} {
		tok, err := iss.Issue(id)
		require.NoError(t, err)
		tokens[id.Username] = tok
	}
	return &testServer{t: t, engine: engine, tokens: tokens}
}

// do 以 who 的身份发请求，who 为空表示匿名
func (s *testServer) do(method, path, who string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[who])
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func (s *testServer) createPost(who, content string) model.Post {
	code, env := s.do(http.MethodPost, "/api/v1/posts", who, gin.H{"content": content})
	require.Equal(s.t, http.StatusCreated, code, env.Message)
	return decode[model.Post](s.t, env.Data)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreatePostHTTP(t *testing.T) {
	s := newTestServer(t)

	post := s.createPost("alice", "hello")
	assert.Equal(t, "alice", post.Username)
	assert.Equal(t, int64(0), post.Score)
	assert.Equal(t, []string{}, post.VotedBy)

	code, env := s.do(http.MethodPost, "/api/v1/posts", "alice", gin.H{"content": "hey"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error)
	assert.Equal(t, "Content is too short", env.Fields["content"])

	code, env = s.do(http.MethodPost, "/api/v1/posts", "alice", gin.H{"content": strings.Repeat("x", 301)})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Content is too long", env.Fields["content"])

	code, env = s.do(http.MethodPost, "/api/v1/posts", "", gin.H{"content": "anonymous post"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "UNAUTHENTICATED", env.Error)

	_, env = s.do(http.MethodGet, "/api/v1/posts", "", nil)
	posts := decode[[]model.Post](t, env.Data)
	assert.Len(t, posts, 1)
}

func TestUnauthenticatedRoutes(t *testing.T) {
	s := newTestServer(t)
	post := s.createPost("alice", "target post")

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/posts"},
		{http.MethodPatch, "/api/v1/posts/" + post.ID},
		{http.MethodDelete, "/api/v1/posts/" + post.ID},
		{http.MethodPost, "/api/v1/posts/" + post.ID + "/vote"},
		{http.MethodPost, "/api/v1/posts/" + post.ID + "/replies"},
		{http.MethodPatch, "/api/v1/replies/any"},
		{http.MethodDelete, "/api/v1/replies/any"},
		{http.MethodPost, "/api/v1/replies/any/vote"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			code, env := s.do(rt.method, rt.path, "", gin.H{"content": "some content", "vote": "1"})
			assert.Equal(t, http.StatusUnauthorized, code)
			assert.Equal(t, "UNAUTHENTICATED", env.Error)
		})
	}

	_, env := s.do(http.MethodGet, "/api/v1/posts", "", nil)
	posts := decode[[]model.Post](t, env.Data)
	require.Len(t, posts, 1)
	assert.Equal(t, "target post", posts[0].Content)
	assert.Equal(t, int64(0), posts[0].Score)
	assert.Empty(t, posts[0].Replies)
}

func TestVoteHTTP(t *testing.T) {
	s := newTestServer(t)
	post := s.createPost("alice", "hello")

	code, env := s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", "bob", gin.H{"vote": "1"})
	require.Equal(t, http.StatusOK, code)
	voted := decode[model.Post](t, env.Data)
	assert.Equal(t, int64(1), voted.Score)
	assert.Equal(t, []string{testutil.Bob.UserID}, voted.VotedBy)

	code, env = s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", "bob", gin.H{"vote": "1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_VOTED", env.Error)

	code, env = s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", "carol", gin.H{"vote": "5"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Fields, "vote")

	code, _ = s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/vote", "carol", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/api/v1/posts/nope/vote", "carol", gin.H{"vote": "-1"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error)

	_, env = s.do(http.MethodGet, "/api/v1/posts", "", nil)
	posts := decode[[]model.Post](t, env.Data)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].Score)
}

func TestReplyLifecycleHTTP(t *testing.T) {
	s := newTestServer(t)
	post := s.createPost("alice", "hello world")

	code, env := s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/replies", "bob",
		gin.H{"replyingTo": "alice", "content": "hi alice"})
	require.Equal(t, http.StatusCreated, code)
	reply := decode[model.Reply](t, env.Data)
	assert.Equal(t, post.ID, reply.PostID)
	assert.Equal(t, "alice", reply.ReplyingTo)

	code, _ = s.do(http.MethodPost, "/api/v1/posts/missing/replies", "bob",
		gin.H{"replyingTo": "alice", "content": "hi nobody"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(http.MethodPost, "/api/v1/replies/"+reply.ID+"/vote", "alice", gin.H{"vote": "-1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(-1), decode[model.Reply](t, env.Data).Score)

	code, env = s.do(http.MethodPatch, "/api/v1/replies/"+reply.ID, "alice", gin.H{"content": "not my reply"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error)

	code, env = s.do(http.MethodPatch, "/api/v1/replies/"+reply.ID, "bob", gin.H{"content": "hi again alice"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Reply updated", decode[map[string]string](t, env.Data)["message"])

	code, _ = s.do(http.MethodDelete, "/api/v1/replies/"+reply.ID, "alice", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodDelete, "/api/v1/replies/"+reply.ID, "bob", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Reply deleted", decode[map[string]string](t, env.Data)["message"])

	code, _ = s.do(http.MethodDelete, "/api/v1/replies/"+reply.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEditAndDeletePostHTTP(t *testing.T) {
	s := newTestServer(t)
	post := s.createPost("alice", "original text")
	for _, who := range []string{"bob", "carol"} {
		code, _ := s.do(http.MethodPost, "/api/v1/posts/"+post.ID+"/replies", who,
			gin.H{"replyingTo": "alice", "content": "reply by " + who})
		require.Equal(t, http.StatusCreated, code)
	}

	code, _ := s.do(http.MethodPatch, "/api/v1/posts/"+post.ID, "bob", gin.H{"content": "vandalised"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodPatch, "/api/v1/posts/"+post.ID, "alice", gin.H{"content": "tiny"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(http.MethodPatch, "/api/v1/posts/missing", "alice", gin.H{"content": "whatever text"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env := s.do(http.MethodPatch, "/api/v1/posts/"+post.ID, "alice", gin.H{"content": "edited text"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Post updated", decode[map[string]string](t, env.Data)["message"])

	code, _ = s.do(http.MethodDelete, "/api/v1/posts/"+post.ID, "bob", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(http.MethodDelete, "/api/v1/posts/"+post.ID, "alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Post deleted along with 2 replies", decode[map[string]string](t, env.Data)["message"])

	_, env = s.do(http.MethodGet, "/api/v1/posts", "", nil)
	assert.Empty(t, decode[[]model.Post](t, env.Data))
}

func TestMalformedJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.tokens["alice"])
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
