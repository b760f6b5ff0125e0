package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/middleware"
	"github.com/PaulBabatuyi/socialnet/internal/monitoring"
	"github.com/PaulBabatuyi/socialnet/internal/response"
	"github.com/PaulBabatuyi/socialnet/internal/service"
)

// bindJSON decodes the request body into v, answering with a validation
// envelope on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		response.Error(c, apperr.Wrap(apperr.Validation, "Invalid request body!", err))
		return false
	}
	return true
}

// register handles user registration: validates input, stores the user and
// returns a session token.
func (s *Server) register(c *gin.Context) {
	var req service.Registration
	if !bindJSON(c, &req) {
		return
	}
	sess, err := s.accounts.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	monitoring.RegisterSuccess.Inc()
	response.OK(c, gin.H{"authToken": sess.Token, "expiresAt": sess.ExpiresAt})
}

// login authenticates a user and returns a session token.
func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !bindJSON(c, &req) {
		return
	}
	sess, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		monitoring.LoginFailure.WithLabelValues(apperr.KindOf(err).String()).Inc()
		s.log.Info("login failed", zap.String("reason", apperr.KindOf(err).String()))
		response.Error(c, err)
		return
	}
	monitoring.LoginSuccess.Inc()
	response.OK(c, gin.H{"authToken": sess.Token, "expiresAt": sess.ExpiresAt})
}

func (s *Server) profile(c *gin.Context) {
	s.respondProfile(c)(s.accounts.Profile(c.Request.Context(), middleware.UserID(c)))
}

func (s *Server) profileByID(c *gin.Context) {
	s.respondProfile(c)(s.accounts.Profile(c.Request.Context(), c.Param("id")))
}

func (s *Server) editProfile(c *gin.Context) {
	var req service.ProfileEdit
	if !bindJSON(c, &req) {
		return
	}
	s.respondProfile(c)(s.accounts.EditProfile(c.Request.Context(), middleware.UserID(c), req))
}

func (s *Server) addProfilePicture(c *gin.Context) {
	var req struct {
		Image      string `json:"image"`
		ProfilePic string `json:"profilepic"`
	}
	if !bindJSON(c, &req) {
		return
	}
	url := req.Image
	if url == "" {
		url = req.ProfilePic
	}
	s.respondProfile(c)(s.accounts.SetProfilePicture(c.Request.Context(), middleware.UserID(c), url))
}

func (s *Server) follow(c *gin.Context) {
	s.respondProfile(c)(s.accounts.Follow(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (s *Server) unfollow(c *gin.Context) {
	s.respondProfile(c)(s.accounts.Unfollow(c.Request.Context(), middleware.UserID(c), c.Param("id")))
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.accounts.DeleteAccount(c.Request.Context(), middleware.UserID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Account deleted successfully!"})
}

func (s *Server) respondProfile(c *gin.Context) func(*service.Profile, error) {
	return func(p *service.Profile, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"user": p})
	}
}
