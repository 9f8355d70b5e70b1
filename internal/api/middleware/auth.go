package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/threadboard/internal/auth"
	"github.com/d60-Lab/threadboard/pkg/logger"
	"github.com/d60-Lab/threadboard/pkg/response"
)

const identityKey = "identity"

// TokenVerifier 认证方的令牌校验
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// RequireAuth 解析 Bearer 令牌，失败直接 401
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "missing bearer token")
			return
		}
		id, err := v.Verify(tokenStr)
		if err != nil {
			logger.Debug("token rejected", zap.Error(err), zap.String("ip", c.ClientIP()))
			response.Unauthorized(c, "invalid token")
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// OptionalAuth 有令牌则解析，无令牌或无效时按匿名处理
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearerToken(c); ok {
			if id, err := v.Verify(tokenStr); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

// Identity 取出当前请求的调用者身份
func Identity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

func setIdentity(c *gin.Context, id auth.Identity) {
	c.Set(identityKey, id)
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}
