package main

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/middleware"
	"github.com/PaulBabatuyi/socialnet/internal/monitoring"
	"github.com/PaulBabatuyi/socialnet/internal/response"
	"github.com/PaulBabatuyi/socialnet/internal/service"
)

// Accounts is implemented by service.AccountService.
type Accounts interface {
	Register(ctx context.Context, r service.Registration) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Profile(ctx context.Context, userID string) (*service.Profile, error)
	EditProfile(ctx context.Context, userID string, e service.ProfileEdit) (*service.Profile, error)
	SetProfilePicture(ctx context.Context, userID, url string) (*service.Profile, error)
	Follow(ctx context.Context, userID, targetID string) (*service.Profile, error)
	Unfollow(ctx context.Context, userID, targetID string) (*service.Profile, error)
	DeleteAccount(ctx context.Context, userID string) error
}

// Content is implemented by service.ContentService.
type Content interface {
	ListPosts(ctx context.Context) ([]service.PostView, error)
	GetPost(ctx context.Context, postID string) (*service.PostView, error)
	ListUserPosts(ctx context.Context, userID string) ([]service.PostView, error)
	AddPost(ctx context.Context, userID string, in service.PostInput) ([]service.PostView, error)
	EditPost(ctx context.Context, userID, postID string, in service.PostInput) (*service.PostView, error)
	DeletePost(ctx context.Context, userID, postID string) ([]service.PostView, error)
	LikePost(ctx context.Context, userID, postID string) (*service.PostView, error)
	UnlikePost(ctx context.Context, userID, postID string) (*service.PostView, error)
	ListComments(ctx context.Context) ([]service.CommentView, error)
	AddComment(ctx context.Context, userID, postID, text string) (*service.CommentResult, error)
	EditComment(ctx context.Context, userID, postID, commentID, text string) (*service.CommentResult, error)
	DeleteComment(ctx context.Context, userID, postID, commentID string) (*service.CommentResult, error)
	LikeComment(ctx context.Context, userID, commentID string) (*service.CommentView, error)
	UnlikeComment(ctx context.Context, userID, commentID string) (*service.CommentView, error)
}

// Messaging is implemented by service.MessagingService.
type Messaging interface {
	Messages(ctx context.Context, userID, senderID, receiverID string) ([]service.MessageView, error)
	Conversations(ctx context.Context, userID string) ([]service.ConversationView, error)
	Send(ctx context.Context, userID, senderID, receiverID string, in service.SendInput) (*service.SendResult, error)
}

// Server holds the HTTP handlers and what they depend on.
type Server struct {
	accounts  Accounts
	content   Content
	messaging Messaging
	verifier  middleware.TokenVerifier
	hub       *ConnectionHub
	limiter   *middleware.LimiterStore
	ping      func(ctx context.Context) error
	origins   []string
	log       *zap.Logger
}

// serverDeps groups newServer's arguments. Limiter and Ping may be nil.
type serverDeps struct {
	Accounts  Accounts
	Content   Content
	Messaging Messaging
	Verifier  middleware.TokenVerifier
	Hub       *ConnectionHub
	Limiter   *middleware.LimiterStore
	Ping      func(ctx context.Context) error
	Origins   []string
	Logger    *zap.Logger
}

// newServer returns a ready-to-use Server.
func newServer(d serverDeps) *Server {
	s := &Server{
		accounts:  d.Accounts,
		content:   d.Content,
		messaging: d.Messaging,
		verifier:  d.Verifier,
		hub:       d.Hub,
		limiter:   d.Limiter,
		ping:      d.Ping,
		origins:   d.Origins,
		log:       d.Logger,
	}
	if s.hub == nil {
		s.hub = NewConnectionHub()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// routes builds the gin engine serving the API.
func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(s.log),
		middleware.Recovery(s.log),
		monitoring.Instrument(),
		cors.New(s.corsConfig()),
	)
	r.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "Route not found")
	})

	r.GET("/metrics", monitoring.Handler())
	r.GET("/healthz", s.healthz)

	authed := middleware.Auth(s.verifier)
	limited := s.rateLimit()

	api := r.Group("/api")

	account := api.Group("/auth")
	account.POST("/register", limited, s.register)
	account.POST("/login", limited, s.login)
	account.GET("/profile", authed, s.profile)
	account.GET("/profile/:id", authed, s.profileByID)
	account.PUT("/edit-profile", authed, s.editProfile)
	account.PUT("/add-dp", authed, s.addProfilePicture)
	account.PUT("/follow/:id", authed, s.follow)
	account.PUT("/unfollow/:id", authed, s.unfollow)
	account.DELETE("/deleteuser", authed, s.deleteUser)

	posts := api.Group("/posts", authed)
	posts.GET("/", s.listPosts)
	posts.GET("/:id", s.getPost)
	posts.GET("/user/:userId", s.userPosts)
	posts.POST("/addpost", s.addPost)
	posts.POST("/editpost/:postId", s.editPost)
	posts.DELETE("/deletepost/:postId", s.deletePost)
	posts.PUT("/likepost/:postId", s.likePost)
	posts.PUT("/unlikepost/:postId", s.unlikePost)

	comments := api.Group("/comments", authed)
	comments.GET("/", s.listComments)
	comments.POST("/addcomment/:postId", s.addComment)
	comments.PUT("/editcomment/:postId/:commentId", s.editComment)
	comments.DELETE("/deletecomment/:postId/:commentId", s.deleteComment)
	comments.PUT("/likecomment/:commentId", s.likeComment)
	comments.PUT("/unlikecomment/:commentId", s.unlikeComment)

	messages := api.Group("/message")
	messages.GET("/", authed, s.listMessages)
	messages.GET("/conversations", authed, s.listConversations)
	messages.GET("/ws", middleware.AuthQuery(s.verifier), s.liveMessages)
	messages.POST("/:receiverId", authed, s.sendMessage)

	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	if len(s.origins) == 0 || slices.Contains(s.origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.TokenHeader, middleware.RequestIDHeader}
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func (s *Server) rateLimit() gin.HandlerFunc {
	if s.limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(s.limiter)
}

func (s *Server) healthz(c *gin.Context) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			response.Fail(c, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	response.OK(c, gin.H{"database": "up", "connections": s.hub.Count()})
}
