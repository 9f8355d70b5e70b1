package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/threadboard/internal/api/middleware"
	"github.com/d60-Lab/threadboard/pkg/response"
)

// GetAll 看板首页
// @Summary 获取帖子列表
// @Description 按分数降序最多 100 条，回复按创建时间升序
// @Tags 帖子
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Post}
// @Failure 500 {object} response.Response
// @Router /api/v1/posts [get]
func (h *Handler) GetAll(c *gin.Context) {
	posts, err := h.board.GetAll(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, posts)
}

// CreatePost 发帖
// @Summary 创建帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body contentRequest true "帖子内容（5-300 字符）"
// @Success 201 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.board.CreatePost(c.Request.Context(), middleware.Identity(c), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, post)
}

// VotePost 对帖子投票
// @Summary 帖子投票（每人一次，不可撤销）
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body voteRequest true "1 或 -1"
// @Success 200 {object} response.Response{data=model.Post}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/posts/{id}/vote [post]
func (h *Handler) VotePost(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	post, err := h.board.VotePost(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.Vote)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, post)
}

// EditPost 编辑帖子
// @Summary 编辑帖子（仅作者）
// @Tags 帖子
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body contentRequest true "新内容"
// @Success 200 {object} response.Response{data=messageResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [patch]
func (h *Handler) EditPost(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.board.EditPost(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, messageResponse{Message: msg})
}

// DeletePost 删除帖子及其全部回复
// @Summary 删除帖子（仅作者，级联删除回复）
// @Tags 帖子
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Success 200 {object} response.Response{data=messageResponse}
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	msg, err := h.board.DeletePost(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, messageResponse{Message: msg})
}
