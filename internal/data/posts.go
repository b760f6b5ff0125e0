package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// PostsStore provides post database operations.
type PostsStore struct {
	collection
}

// NewPostsStore returns a PostsStore using the given collection.
func NewPostsStore(coll *mongo.Collection) *PostsStore {
	return &PostsStore{collection{coll: coll}}
}

// CreatePost inserts a post owned by post.User.
func (p *PostsStore) CreatePost(ctx context.Context, post *Post) (*Post, error) {
	now := time.Now()
	post.CreatedAt, post.UpdatedAt = now, now
	post.Likes = nonNilIDs(post.Likes)
	post.Comments = nonNilIDs(post.Comments)

	id, err := p.insert(ctx, post)
	if err != nil {
		return nil, err
	}
	post.ID = id
	return post, nil
}

// GetPostByID finds a post by id.
func (p *PostsStore) GetPostByID(ctx context.Context, id bson.ObjectID) (*Post, error) {
	var post Post
	if err := p.findByID(ctx, id, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts returns every post, newest first.
func (p *PostsStore) ListPosts(ctx context.Context) ([]*Post, error) {
	var posts []*Post
	err := p.find(ctx, bson.M{}, &posts, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	return posts, err
}

// ListPostsByUser returns the posts owned by userID, newest first.
func (p *PostsStore) ListPostsByUser(ctx context.Context, userID bson.ObjectID) ([]*Post, error) {
	var posts []*Post
	err := p.find(ctx, bson.M{"user": userID}, &posts, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	return posts, err
}

// UpdatePost replaces images and caption in place.
func (p *PostsStore) UpdatePost(ctx context.Context, id bson.ObjectID, images []string, caption string) error {
	return p.updateByID(ctx, id, bson.M{"$set": bson.M{
		"images":     images,
		"caption":    caption,
		"updated_at": time.Now(),
	}})
}

// DeletePost removes one post.
func (p *PostsStore) DeletePost(ctx context.Context, id bson.ObjectID) error {
	return p.deleteByID(ctx, id)
}

// DeletePosts removes every post in ids. Missing ids are ignored.
func (p *PostsStore) DeletePosts(ctx context.Context, ids []bson.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := p.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// PushComment appends commentID to the post's comments.
func (p *PostsStore) PushComment(ctx context.Context, id, commentID bson.ObjectID) error {
	return p.updateByID(ctx, id, bson.M{"$push": bson.M{"comments": commentID}})
}

// PullComment removes commentID from the post's comments.
func (p *PostsStore) PullComment(ctx context.Context, id, commentID bson.ObjectID) error {
	return p.updateByID(ctx, id, bson.M{"$pull": bson.M{"comments": commentID}})
}

// PullComments removes the given comment ids from every post referencing them.
func (p *PostsStore) PullComments(ctx context.Context, commentIDs []bson.ObjectID) error {
	if len(commentIDs) == 0 {
		return nil
	}
	_, err := p.coll.UpdateMany(ctx,
		bson.M{"comments": bson.M{"$in": commentIDs}},
		bson.M{"$pull": bson.M{"comments": bson.M{"$in": commentIDs}}},
	)
	return err
}

// AddLike adds userID to the post's likes once.
func (p *PostsStore) AddLike(ctx context.Context, id, userID bson.ObjectID) error {
	return p.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"likes": userID}})
}

// RemoveLike removes userID from the post's likes.
func (p *PostsStore) RemoveLike(ctx context.Context, id, userID bson.ObjectID) error {
	return p.updateByID(ctx, id, bson.M{"$pull": bson.M{"likes": userID}})
}

// PullLikesBy removes userID from the likes of every post.
func (p *PostsStore) PullLikesBy(ctx context.Context, userID bson.ObjectID) error {
	_, err := p.coll.UpdateMany(ctx, bson.M{"likes": userID}, bson.M{"$pull": bson.M{"likes": userID}})
	return err
}

// Summaries returns the id/images/caption projection of the given posts.
func (p *PostsStore) Summaries(ctx context.Context, ids []bson.ObjectID) ([]PostSummary, error) {
	var out []PostSummary
	if err := p.project(ctx, ids, []string{"_id", "images", "caption"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}
