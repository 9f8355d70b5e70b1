package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/threadboard/internal/service"
	"github.com/d60-Lab/threadboard/pkg/response"
)

// Handler 看板 HTTP 处理器
type Handler struct {
	board service.BoardService
}

func NewHandler(board service.BoardService) *Handler {
	return &Handler{board: board}
}

type contentRequest struct {
	Content string `json:"content"`
}

type createReplyRequest struct {
	ReplyingTo string `json:"replyingTo"`
	Content    string `json:"content"`
}

type voteRequest struct {
	Vote string `json:"vote" binding:"required" example:"1"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// fail 把服务层错误映射为 HTTP 响应
func fail(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Error(), verr.Fields)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, "sign in required")
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, "not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, "you can only change your own content")
	case errors.Is(err, service.ErrAlreadyVoted):
		response.Conflict(c, response.CodeAlreadyVoted, "you already voted on this")
	default:
		response.InternalError(c, err)
	}
}
