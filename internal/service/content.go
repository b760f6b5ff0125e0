package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/data"
	"github.com/PaulBabatuyi/socialnet/internal/events"
	"github.com/PaulBabatuyi/socialnet/internal/validate"
)

const (
	msgPostNotFound    = "Post not found"
	msgCommentNotFound = "Comment not found"
	msgAuthorNotFound  = "User not found"
)

// ContentService implements posts, comments and likes.
type ContentService struct {
	d Deps
}

// NewContentService returns a ContentService backed by d.
func NewContentService(d Deps) *ContentService {
	return &ContentService{d: d.withDefaults()}
}

// PostInput is the body of add/edit post.
type PostInput struct {
	Images  []string `json:"images"`
	Caption string   `json:"caption"`
}

// CommentResult is returned by comment mutations: the affected post and the
// comment listing.
type CommentResult struct {
	Post     *PostView     `json:"post"`
	Comments []CommentView `json:"comments"`
}

// ListPosts returns every post, newest first.
func (s *ContentService) ListPosts(ctx context.Context) ([]PostView, error) {
	posts, err := s.d.Posts.ListPosts(ctx)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return s.d.postViews(ctx, posts)
}

// GetPost returns one expanded post.
func (s *ContentService) GetPost(ctx context.Context, postID string) (*PostView, error) {
	post, err := s.post(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.d.postView(ctx, post)
}

// ListUserPosts returns the posts of userID, newest first.
func (s *ContentService) ListUserPosts(ctx context.Context, userID string) ([]PostView, error) {
	user, err := loadUser(ctx, s.d, userID, msgAuthorNotFound)
	if err != nil {
		return nil, err
	}
	posts, err := s.d.Posts.ListPostsByUser(ctx, user.ID)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return s.d.postViews(ctx, posts)
}

// AddPost creates a post owned by userID and returns the refreshed listing.
func (s *ContentService) AddPost(ctx context.Context, userID string, in PostInput) ([]PostView, error) {
	if err := validate.Struct(validate.Post{Images: in.Images}); err != nil {
		return nil, err
	}
	user, err := loadUser(ctx, s.d, userID, msgAuthorNotFound)
	if err != nil {
		return nil, err
	}

	var post *data.Post
	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		post, err = s.d.Posts.CreatePost(ctx, &data.Post{
			Images:  in.Images,
			Caption: strings.TrimSpace(in.Caption),
			User:    user.ID,
		})
		if err != nil {
			return err
		}
		return s.d.Users.PushPost(ctx, user.ID, post.ID)
	})
	if err != nil {
		return nil, storeErr(err, msgAuthorNotFound)
	}
	s.d.publish(ctx, events.PostCreated, user.ID, post.ID)
	return s.ListPosts(ctx)
}

// EditPost replaces the images and caption of a post owned by userID.
func (s *ContentService) EditPost(ctx context.Context, userID, postID string, in PostInput) (*PostView, error) {
	if err := validate.Struct(validate.Post{Images: in.Images}); err != nil {
		return nil, err
	}
	user, post, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.User != user.ID {
		return nil, apperr.New(apperr.Forbidden, "You can only edit your own posts!")
	}
	if err := s.d.Posts.UpdatePost(ctx, post.ID, in.Images, strings.TrimSpace(in.Caption)); err != nil {
		return nil, storeErr(err, msgPostNotFound)
	}
	return s.GetPost(ctx, postID)
}

// DeletePost removes a post owned by userID with its comments and returns
// the refreshed listing.
func (s *ContentService) DeletePost(ctx context.Context, userID, postID string) ([]PostView, error) {
	user, post, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.User != user.ID {
		return nil, apperr.New(apperr.Forbidden, "You can only delete your own posts!")
	}

	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.d.Users.PullPost(ctx, user.ID, post.ID); err != nil {
			return err
		}
		if err := s.d.Comments.DeleteCommentsOnPosts(ctx, []bson.ObjectID{post.ID}); err != nil {
			return err
		}
		return s.d.Posts.DeletePost(ctx, post.ID)
	})
	if err != nil {
		return nil, storeErr(err, msgPostNotFound)
	}
	s.d.publish(ctx, events.PostDeleted, user.ID, post.ID)
	return s.ListPosts(ctx)
}

// LikePost adds userID to the post's likes. Liking twice is a no-op.
func (s *ContentService) LikePost(ctx context.Context, userID, postID string) (*PostView, error) {
	return s.togglePostLike(ctx, userID, postID, s.d.Posts.AddLike)
}

// UnlikePost removes userID from the post's likes.
func (s *ContentService) UnlikePost(ctx context.Context, userID, postID string) (*PostView, error) {
	return s.togglePostLike(ctx, userID, postID, s.d.Posts.RemoveLike)
}

func (s *ContentService) togglePostLike(ctx context.Context, userID, postID string, apply func(context.Context, bson.ObjectID, bson.ObjectID) error) (*PostView, error) {
	user, post, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, post.ID, user.ID); err != nil {
		return nil, storeErr(err, msgPostNotFound)
	}
	return s.GetPost(ctx, postID)
}

// ListComments returns every comment, oldest first.
func (s *ContentService) ListComments(ctx context.Context) ([]CommentView, error) {
	comments, err := s.d.Comments.ListComments(ctx)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return s.d.commentViews(ctx, comments)
}

// AddComment creates a comment by userID on postID.
func (s *ContentService) AddComment(ctx context.Context, userID, postID, text string) (*CommentResult, error) {
	text = strings.TrimSpace(text)
	if err := validate.Struct(validate.Comment{Text: text}); err != nil {
		return nil, err
	}
	user, post, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	var comment *data.Comment
	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		comment, err = s.d.Comments.CreateComment(ctx, &data.Comment{
			Comment: text,
			Post:    post.ID,
			User:    user.ID,
		})
		if err != nil {
			return err
		}
		return s.d.Posts.PushComment(ctx, post.ID, comment.ID)
	})
	if err != nil {
		return nil, storeErr(err, msgPostNotFound)
	}
	s.d.publish(ctx, events.CommentCreated, user.ID, comment.ID)
	return s.commentResult(ctx, postID)
}

// EditComment replaces the text of a comment written by userID.
func (s *ContentService) EditComment(ctx context.Context, userID, postID, commentID, text string) (*CommentResult, error) {
	text = strings.TrimSpace(text)
	if err := validate.Struct(validate.Comment{Text: text}); err != nil {
		return nil, err
	}
	user, _, comment, err := s.userPostComment(ctx, userID, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.User != user.ID {
		return nil, apperr.New(apperr.Forbidden, "You can only edit your own comments!")
	}
	if err := s.d.Comments.UpdateCommentText(ctx, comment.ID, text); err != nil {
		return nil, storeErr(err, msgCommentNotFound)
	}
	return s.commentResult(ctx, postID)
}

// DeleteComment removes a comment. The comment's author and the post's
// owner may delete it.
func (s *ContentService) DeleteComment(ctx context.Context, userID, postID, commentID string) (*CommentResult, error) {
	user, post, comment, err := s.userPostComment(ctx, userID, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.User != user.ID && post.User != user.ID {
		return nil, apperr.New(apperr.Forbidden, "You can only delete your own comments!")
	}

	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.d.Posts.PullComment(ctx, post.ID, comment.ID); err != nil {
			return err
		}
		return s.d.Comments.DeleteComment(ctx, comment.ID)
	})
	if err != nil {
		return nil, storeErr(err, msgCommentNotFound)
	}
	return s.commentResult(ctx, postID)
}

// LikeComment adds userID to the comment's likes. Liking twice is a no-op.
func (s *ContentService) LikeComment(ctx context.Context, userID, commentID string) (*CommentView, error) {
	return s.toggleCommentLike(ctx, userID, commentID, s.d.Comments.AddLike)
}

// UnlikeComment removes userID from the comment's likes.
func (s *ContentService) UnlikeComment(ctx context.Context, userID, commentID string) (*CommentView, error) {
	return s.toggleCommentLike(ctx, userID, commentID, s.d.Comments.RemoveLike)
}

func (s *ContentService) toggleCommentLike(ctx context.Context, userID, commentID string, apply func(context.Context, bson.ObjectID, bson.ObjectID) error) (*CommentView, error) {
	user, err := loadUser(ctx, s.d, userID, msgUserNotFound)
	if err != nil {
		return nil, err
	}
	comment, err := s.comment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, comment.ID, user.ID); err != nil {
		return nil, storeErr(err, msgCommentNotFound)
	}
	if comment, err = s.comment(ctx, commentID); err != nil {
		return nil, err
	}
	views, err := s.d.commentViews(ctx, []*data.Comment{comment})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, apperr.New(apperr.NotFound, msgCommentNotFound)
	}
	return &views[0], nil
}

func (s *ContentService) commentResult(ctx context.Context, postID string) (*CommentResult, error) {
	post, err := s.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.ListComments(ctx)
	if err != nil {
		return nil, err
	}
	return &CommentResult{Post: post, Comments: comments}, nil
}

func (s *ContentService) post(ctx context.Context, postID string) (*data.Post, error) {
	id, err := parseID(postID, "post")
	if err != nil {
		return nil, err
	}
	post, err := s.d.Posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgPostNotFound)
	}
	return post, nil
}

func (s *ContentService) comment(ctx context.Context, commentID string) (*data.Comment, error) {
	id, err := parseID(commentID, "comment")
	if err != nil {
		return nil, err
	}
	comment, err := s.d.Comments.GetCommentByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, msgCommentNotFound)
	}
	return comment, nil
}

func (s *ContentService) userAndPost(ctx context.Context, userID, postID string) (*data.User, *data.Post, error) {
	user, err := loadUser(ctx, s.d, userID, msgAuthorNotFound)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.post(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return user, post, nil
}

// userPostComment loads all three and checks the comment belongs to the post.
func (s *ContentService) userPostComment(ctx context.Context, userID, postID, commentID string) (*data.User, *data.Post, *data.Comment, error) {
	user, post, err := s.userAndPost(ctx, userID, postID)
	if err != nil {
		return nil, nil, nil, err
	}
	comment, err := s.comment(ctx, commentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if comment.Post != post.ID {
		return nil, nil, nil, apperr.New(apperr.NotFound, msgCommentNotFound)
	}
	return user, post, comment, nil
}
