package router

import (
	"strings"
	"time"

	"github.com/blogzine/internal/handler"
	"github.com/blogzine/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "blogzine_session"

// Options 描述路由层依赖的配置
type Options struct {
	SessionSecret string
	UploadDir     string
	UploadURLPath string
	CORSOrigins   []string
	// MaxMultipartMemory bounds the in-memory part of multipart parsing; the rest spills to disk.
	MaxMultipartMemory int64
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.Use(gin.CustomRecovery(middleware.HandlePanics()))
	if opts.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMemory
	}

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 配置会话中间件
	secret := opts.SessionSecret
	if secret == "" {
		secret = "blogzine-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 7 * 24 * 60 * 60})
	r.Use(sessions.Sessions(sessionName, store))

	// 上传文件的静态服务
	if opts.UploadDir != "" {
		urlPath := "/" + strings.Trim(opts.UploadURLPath, "/")
		if urlPath == "/" {
			urlPath = "/static/uploads"
		}
		r.Static(urlPath, opts.UploadDir)
		if urlPath != "/uploads" {
			r.Static("/uploads", opts.UploadDir)
		}
	}

	r.GET("/ping", api.HealthCheck)

	public := r.Group("/api")
	{
		public.POST("/auth/login", api.Login)
		public.POST("/auth/logout", api.Logout)

		public.GET("/feed", api.ListCurrentFeed)
		public.GET("/issues/:id/posts", api.ListIssuePosts)
		public.GET("/authors/:id/posts", api.ListAuthorPosts)
		public.GET("/posts/:id", api.OptionalIdentity(), api.GetPost)
	}

	// 需要认证的路由
	auth := r.Group("/api")
	auth.Use(api.RequireIdentity())
	{
		auth.POST("/posts", api.CreatePost)
		auth.PUT("/posts/:id", api.UpdatePost)
		auth.DELETE("/posts/:id", api.DeletePost)
		auth.POST("/posts/:id/readers", api.AddReader)
		auth.DELETE("/files/:id", api.DeleteFile)

		auth.GET("/me/rejected", api.ListMyRejected)
		auth.GET("/me/drafts", api.ListMyDrafts)
	}

	return r
}
