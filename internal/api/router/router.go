package router

import (
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "github.com/d60-Lab/threadboard/docs"
	"github.com/d60-Lab/threadboard/internal/api/handler"
	"github.com/d60-Lab/threadboard/internal/api/middleware"
)

// Options 路由依赖
type Options struct {
	ServiceName  string
	Verifier     middleware.TokenVerifier
	Limiter      *middleware.RateLimiter
	AllowOrigins []string
	Swagger      bool
}

// Setup 组装 gin 引擎
func Setup(h *handler.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(),
		gin.Recovery(),
		// sentry 上报后再抛给外层 Recovery 返回 500
		sentrygin.New(sentrygin.Options{Repanic: true, Timeout: 2 * time.Second}),
		middleware.CORS(opts.AllowOrigins),
		gzip.Gzip(gzip.DefaultCompression),
	)
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.OptionalAuth(opts.Verifier))
	if opts.Limiter != nil {
		v1.Use(opts.Limiter.Middleware())
	}
	v1.GET("/posts", h.GetAll)

	authed := v1.Group("", middleware.RequireAuth(opts.Verifier))
	{
		authed.POST("/posts", h.CreatePost)
		authed.PATCH("/posts/:id", h.EditPost)
		authed.DELETE("/posts/:id", h.DeletePost)
		authed.POST("/posts/:id/vote", h.VotePost)
		authed.POST("/posts/:id/replies", h.CreateReply)

		authed.PATCH("/replies/:id", h.EditReply)
		authed.DELETE("/replies/:id", h.DeleteReply)
		authed.POST("/replies/:id/vote", h.VoteReply)
	}
	return r
}
