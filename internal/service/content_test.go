package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
)

func TestAddPostImageCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")

	_, err := f.content.AddPost(ctx, a, PostInput{})
	assert.True(t, apperr.Is(err, apperr.Validation))

	six := []string{"1", "2", "3", "4", "5", "6"}
	_, err = f.content.AddPost(ctx, a, PostInput{Images: six})
	assert.True(t, apperr.Is(err, apperr.Validation))

	posts, err := f.content.AddPost(ctx, a, PostInput{Images: six[:5], Caption: " five "})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "five", posts[0].Caption)
	assert.Equal(t, "alice01", posts[0].User.Username)

	_, _, owned := f.userDoc(t, a)
	assert.Equal(t, []bson.ObjectID{posts[0].ID}, owned)

	_, err = f.content.AddPost(ctx, bson.NewObjectID().Hex(), PostInput{Images: six[:1]})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestEditPostRequiresOwnership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	posts, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/1"}})
	require.NoError(t, err)
	id := posts[0].ID.Hex()

	_, err = f.content.EditPost(ctx, b, id, PostInput{Images: []string{"https://img/x"}})
	require.True(t, apperr.Is(err, apperr.Forbidden))
	assert.Equal(t, 403, apperr.Status(err))

	p, err := f.content.EditPost(ctx, a, id, PostInput{Images: []string{"https://img/2", "https://img/3"}, Caption: "new"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img/2", "https://img/3"}, p.Images)
	assert.Equal(t, "new", p.Caption)

	_, err = f.content.EditPost(ctx, a, bson.NewObjectID().Hex(), PostInput{Images: []string{"x"}})
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDeletePostRemovesCommentsAndOwnerRef(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	posts, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/1"}})
	require.NoError(t, err)
	id := posts[0].ID.Hex()
	_, err = f.content.AddComment(ctx, b, id, "first")
	require.NoError(t, err)
	_, err = f.content.AddComment(ctx, a, id, "second")
	require.NoError(t, err)

	_, err = f.content.DeletePost(ctx, b, id)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	left, err := f.content.DeletePost(ctx, a, id)
	require.NoError(t, err)
	assert.Empty(t, left)

	comments, err := f.content.ListComments(ctx)
	require.NoError(t, err)
	assert.Empty(t, comments)
	_, _, owned := f.userDoc(t, a)
	assert.Empty(t, owned)

	_, err = f.content.GetPost(ctx, id)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestPostLikesAreIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	posts, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/1"}})
	require.NoError(t, err)
	id := posts[0].ID.Hex()

	for i := 0; i < 2; i++ {
		p, err := f.content.LikePost(ctx, a, id)
		require.NoError(t, err)
		assert.Len(t, p.Likes, 1)
	}
	p, err := f.content.UnlikePost(ctx, a, id)
	require.NoError(t, err)
	assert.Empty(t, p.Likes)
}

func TestCommentLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	posts, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/1"}})
	require.NoError(t, err)
	postID := posts[0].ID.Hex()

	_, err = f.content.AddComment(ctx, b, postID, "   ")
	assert.True(t, apperr.Is(err, apperr.Validation))

	res, err := f.content.AddComment(ctx, b, postID, " nice! ")
	require.NoError(t, err)
	require.Len(t, res.Post.Comments, 1)
	assert.Equal(t, "nice!", res.Post.Comments[0].Comment)
	commentID := res.Post.Comments[0].ID.Hex()

	_, err = f.content.EditComment(ctx, a, postID, commentID, "hijack")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	res, err = f.content.EditComment(ctx, b, postID, commentID, "very nice!")
	require.NoError(t, err)
	assert.Equal(t, "very nice!", res.Comments[0].Comment)
	assert.Equal(t, "bobby01", res.Comments[0].User.Username)

	c, err := f.content.LikeComment(ctx, a, commentID)
	require.NoError(t, err)
	assert.Len(t, c.Likes, 1)
	c, err = f.content.LikeComment(ctx, a, commentID)
	require.NoError(t, err)
	assert.Len(t, c.Likes, 1)
	c, err = f.content.UnlikeComment(ctx, a, commentID)
	require.NoError(t, err)
	assert.Empty(t, c.Likes)

	// the post owner may remove comments on their post
	res, err = f.content.DeleteComment(ctx, a, postID, commentID)
	require.NoError(t, err)
	assert.Empty(t, res.Post.Comments)
	assert.Empty(t, res.Comments)

	_, err = f.content.LikeComment(ctx, a, commentID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestCommentMustBelongToPost(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	first, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/1"}})
	require.NoError(t, err)
	second, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/2"}})
	require.NoError(t, err)

	// listings are newest first, so second[0] is the second post
	res, err := f.content.AddComment(ctx, a, second[0].ID.Hex(), "on second")
	require.NoError(t, err)
	commentID := res.Comments[0].ID.Hex()

	_, err = f.content.EditComment(ctx, a, first[0].ID.Hex(), commentID, "moved")
	assert.True(t, apperr.Is(err, apperr.NotFound))
	_, err = f.content.DeleteComment(ctx, a, first[0].ID.Hex(), commentID)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestListingsDropDanglingReferences(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	_, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/a"}})
	require.NoError(t, err)
	_, err = f.content.AddPost(ctx, b, PostInput{Images: []string{"https://img/b"}})
	require.NoError(t, err)

	// remove b without the cascade, as an interrupted delete would
	require.NoError(t, memUsers{f.db}.DeleteUser(ctx, oid(t, b)))

	posts, err := f.content.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "alice01", posts[0].User.Username)
}

func TestListUserPosts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.register(t, "Alice Doe", "alice01", "a@x.com")
	b := f.register(t, "Bobby Roe", "bobby01", "b@x.com")
	_, err := f.content.AddPost(ctx, a, PostInput{Images: []string{"https://img/a"}})
	require.NoError(t, err)
	_, err = f.content.AddPost(ctx, b, PostInput{Images: []string{"https://img/b"}})
	require.NoError(t, err)

	posts, err := f.content.ListUserPosts(ctx, b)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, []string{"https://img/b"}, posts[0].Images)
}
