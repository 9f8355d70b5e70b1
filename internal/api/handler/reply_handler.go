package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/threadboard/internal/api/middleware"
	"github.com/d60-Lab/threadboard/pkg/response"
)

// CreateReply 回复帖子
// @Summary 创建回复
// @Tags 回复
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "帖子ID"
// @Param request body createReplyRequest true "回复内容"
// @Success 201 {object} response.Response{data=model.Reply}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id}/replies [post]
func (h *Handler) CreateReply(c *gin.Context) {
	var req createReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply, err := h.board.CreateReply(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.ReplyingTo, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, reply)
}

// VoteReply 对回复投票
// @Summary 回复投票（每人一次，不可撤销）
// @Tags 回复
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "回复ID"
// @Param request body voteRequest true "1 或 -1"
// @Success 200 {object} response.Response{data=model.Reply}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/replies/{id}/vote [post]
func (h *Handler) VoteReply(c *gin.Context) {
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	reply, err := h.board.VoteReply(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.Vote)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, reply)
}

// EditReply 编辑回复
// @Summary 编辑回复（仅作者）
// @Tags 回复
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "回复ID"
// @Param request body contentRequest true "新内容"
// @Success 200 {object} response.Response{data=messageResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/replies/{id} [patch]
func (h *Handler) EditReply(c *gin.Context) {
	var req contentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	msg, err := h.board.EditReply(c.Request.Context(), middleware.Identity(c), c.Param("id"), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, messageResponse{Message: msg})
}

// DeleteReply 删除回复
// @Summary 删除回复（仅作者）
// @Tags 回复
// @Produce json
// @Security BearerAuth
// @Param id path string true "回复ID"
// @Success 200 {object} response.Response{data=messageResponse}
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/replies/{id} [delete]
func (h *Handler) DeleteReply(c *gin.Context) {
	msg, err := h.board.DeleteReply(c.Request.Context(), middleware.Identity(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, messageResponse{Message: msg})
}
