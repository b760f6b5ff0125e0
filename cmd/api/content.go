package main

import (
	"github.com/gin-gonic/gin"

	"github.com/PaulBabatuyi/socialnet/internal/middleware"
	"github.com/PaulBabatuyi/socialnet/internal/response"
	"github.com/PaulBabatuyi/socialnet/internal/service"
)

type commentRequest struct {
	Comment string `json:"comment"`
}

func (s *Server) listPosts(c *gin.Context) {
	posts, err := s.content.ListPosts(c.Request.Context())
	respond(c, "posts", posts, err)
}

func (s *Server) getPost(c *gin.Context) {
	post, err := s.content.GetPost(c.Request.Context(), c.Param("id"))
	respond(c, "post", post, err)
}

func (s *Server) userPosts(c *gin.Context) {
	posts, err := s.content.ListUserPosts(c.Request.Context(), c.Param("userId"))
	respond(c, "posts", posts, err)
}

func (s *Server) addPost(c *gin.Context) {
	var req service.PostInput
	if !bindJSON(c, &req) {
		return
	}
	posts, err := s.content.AddPost(c.Request.Context(), middleware.UserID(c), req)
	respond(c, "posts", posts, err)
}

func (s *Server) editPost(c *gin.Context) {
	var req service.PostInput
	if !bindJSON(c, &req) {
		return
	}
	post, err := s.content.EditPost(c.Request.Context(), middleware.UserID(c), c.Param("postId"), req)
	respond(c, "post", post, err)
}

func (s *Server) deletePost(c *gin.Context) {
	posts, err := s.content.DeletePost(c.Request.Context(), middleware.UserID(c), c.Param("postId"))
	respond(c, "posts", posts, err)
}

func (s *Server) likePost(c *gin.Context) {
	post, err := s.content.LikePost(c.Request.Context(), middleware.UserID(c), c.Param("postId"))
	respond(c, "post", post, err)
}

func (s *Server) unlikePost(c *gin.Context) {
	post, err := s.content.UnlikePost(c.Request.Context(), middleware.UserID(c), c.Param("postId"))
	respond(c, "post", post, err)
}

func (s *Server) listComments(c *gin.Context) {
	comments, err := s.content.ListComments(c.Request.Context())
	respond(c, "comments", comments, err)
}

func (s *Server) addComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.content.AddComment(c.Request.Context(), middleware.UserID(c), c.Param("postId"), req.Comment)
	respondComments(c, res, err)
}

func (s *Server) editComment(c *gin.Context) {
	var req commentRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.content.EditComment(c.Request.Context(), middleware.UserID(c), c.Param("postId"), c.Param("commentId"), req.Comment)
	respondComments(c, res, err)
}

func (s *Server) deleteComment(c *gin.Context) {
	res, err := s.content.DeleteComment(c.Request.Context(), middleware.UserID(c), c.Param("postId"), c.Param("commentId"))
	respondComments(c, res, err)
}

func (s *Server) likeComment(c *gin.Context) {
	comment, err := s.content.LikeComment(c.Request.Context(), middleware.UserID(c), c.Param("commentId"))
	respond(c, "comment", comment, err)
}

func (s *Server) unlikeComment(c *gin.Context) {
	comment, err := s.content.UnlikeComment(c.Request.Context(), middleware.UserID(c), c.Param("commentId"))
	respond(c, "comment", comment, err)
}

// respond writes v under key, or the error envelope.
func respond(c *gin.Context, key string, v any, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{key: v})
}

func respondComments(c *gin.Context, res *service.CommentResult, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"post": res.Post, "comments": res.Comments})
}
