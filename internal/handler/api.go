package handler

import (
	"time"

	"github.com/blogzine/internal/service"
	"github.com/blogzine/internal/storage"
	"gorm.io/gorm"
)

// Options carries the tunables handlers pass on to services.
type Options struct {
	MaxUploadBytes int64
	FeedPageSize   int
	JWTSecret      string
	TokenTTL       time.Duration
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	posts    *service.PostService
	feeds    *service.FeedService
	auth     *service.AuthService
	renderer *Renderer
}

// NewAPI constructs a handler set with shared services.
func NewAPI(db *gorm.DB, store storage.Store, opts Options) *API {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = service.DefaultMaxUploadBytes
	}

	return &API{
		db:       db,
		posts:    service.NewPostService(db, store, maxUpload),
		feeds:    service.NewFeedService(db, opts.FeedPageSize),
		auth:     service.NewAuthService(db, opts.JWTSecret, opts.TokenTTL),
		renderer: NewRenderer(),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Auth exposes the token service for the identity middleware.
func (a *API) Auth() *service.AuthService {
	return a.auth
}
