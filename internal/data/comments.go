package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CommentsStore provides comment database operations.
type CommentsStore struct {
	collection
}

// NewCommentsStore returns a CommentsStore using the given collection.
func NewCommentsStore(coll *mongo.Collection) *CommentsStore {
	return &CommentsStore{collection{coll: coll}}
}

// CreateComment inserts a comment.
func (c *CommentsStore) CreateComment(ctx context.Context, comment *Comment) (*Comment, error) {
	now := time.Now()
	comment.CreatedAt, comment.UpdatedAt = now, now
	comment.Likes = nonNilIDs(comment.Likes)

	id, err := c.insert(ctx, comment)
	if err != nil {
		return nil, err
	}
	comment.ID = id
	return comment, nil
}

// GetCommentByID finds a comment by id.
func (c *CommentsStore) GetCommentByID(ctx context.Context, id bson.ObjectID) (*Comment, error) {
	var comment Comment
	if err := c.findByID(ctx, id, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments returns every comment, oldest first.
func (c *CommentsStore) ListComments(ctx context.Context) ([]*Comment, error) {
	var comments []*Comment
	err := c.find(ctx, bson.M{}, &comments, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	return comments, err
}

// ListCommentsByUser returns the comments written by userID.
func (c *CommentsStore) ListCommentsByUser(ctx context.Context, userID bson.ObjectID) ([]*Comment, error) {
	var comments []*Comment
	err := c.find(ctx, bson.M{"user": userID}, &comments)
	return comments, err
}

// UpdateCommentText replaces the comment text.
func (c *CommentsStore) UpdateCommentText(ctx context.Context, id bson.ObjectID, text string) error {
	return c.updateByID(ctx, id, bson.M{"$set": bson.M{"comment": text, "updated_at": time.Now()}})
}

// DeleteComment removes one comment.
func (c *CommentsStore) DeleteComment(ctx context.Context, id bson.ObjectID) error {
	return c.deleteByID(ctx, id)
}

// DeleteComments removes every comment in ids.
func (c *CommentsStore) DeleteComments(ctx context.Context, ids []bson.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// DeleteCommentsOnPosts removes every comment referencing one of postIDs.
func (c *CommentsStore) DeleteCommentsOnPosts(ctx context.Context, postIDs []bson.ObjectID) error {
	if len(postIDs) == 0 {
		return nil
	}
	_, err := c.coll.DeleteMany(ctx, bson.M{"post": bson.M{"$in": postIDs}})
	return err
}

// AddLike adds userID to the comment's likes once.
func (c *CommentsStore) AddLike(ctx context.Context, id, userID bson.ObjectID) error {
	return c.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"likes": userID}})
}

// RemoveLike removes userID from the comment's likes.
func (c *CommentsStore) RemoveLike(ctx context.Context, id, userID bson.ObjectID) error {
	return c.updateByID(ctx, id, bson.M{"$pull": bson.M{"likes": userID}})
}

// PullLikesBy removes userID from the likes of every comment.
func (c *CommentsStore) PullLikesBy(ctx context.Context, userID bson.ObjectID) error {
	_, err := c.coll.UpdateMany(ctx, bson.M{"likes": userID}, bson.M{"$pull": bson.M{"likes": userID}})
	return err
}

// Summaries returns the id/comment/user projection of the given comments.
func (c *CommentsStore) Summaries(ctx context.Context, ids []bson.ObjectID) ([]CommentSummary, error) {
	var out []CommentSummary
	if err := c.project(ctx, ids, []string{"_id", "comment", "user"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
