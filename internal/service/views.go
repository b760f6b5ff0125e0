package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/socialnet/internal/data"
)

// Profile is a user with followers, following and posts expanded.
type Profile struct {
	ID         bson.ObjectID      `json:"_id"`
	Name       string             `json:"name"`
	Username   string             `json:"username"`
	Email      string             `json:"email"`
	ProfilePic string             `json:"profilepic"`
	Bio        *string            `json:"bio"`
	Followers  []data.UserSummary `json:"followers"`
	Following  []data.UserSummary `json:"following"`
	Posts      []data.PostSummary `json:"posts"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// PostView is a post with its owner and comments expanded.
type PostView struct {
	ID        bson.ObjectID         `json:"_id"`
	Images    []string              `json:"images"`
	Caption   string                `json:"caption,omitempty"`
	User      data.UserSummary      `json:"user"`
	Likes     []bson.ObjectID       `json:"likes"`
	Comments  []data.CommentSummary `json:"comments"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// CommentView is a comment with its author expanded.
type CommentView struct {
	ID        bson.ObjectID    `json:"_id"`
	Comment   string           `json:"comment"`
	Post      bson.ObjectID    `json:"post"`
	User      data.UserSummary `json:"user"`
	Likes     []bson.ObjectID  `json:"likes"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// MessageView is a message with sender and receiver expanded.
type MessageView struct {
	ID           bson.ObjectID    `json:"_id"`
	Conversation bson.ObjectID    `json:"conversation"`
	Text         string           `json:"text,omitempty"`
	Images       []string         `json:"images,omitempty"`
	Sender       data.UserSummary `json:"sender"`
	Receiver     data.UserSummary `json:"receiver"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ConversationView is a conversation with both recipients expanded.
type ConversationView struct {
	ID         bson.ObjectID      `json:"_id"`
	Recipients []data.UserSummary `json:"recipients"`
	Text       string             `json:"text"`
	Media      []string           `json:"media"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

// The joins below resolve references with one projection query per related
// collection. References whose target no longer exists are dropped, and
// documents whose owner is gone are left out of listings.

func index[T any](items []T, key func(T) bson.ObjectID) map[bson.ObjectID]T {
	m := make(map[bson.ObjectID]T, len(items))
	for _, it := range items {
		m[key(it)] = it
	}
	return m
}

// pick returns m's entries for ids in order, skipping ids missing from m.
func pick[T any](ids []bson.ObjectID, m map[bson.ObjectID]T) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := m[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (d Deps) userIndex(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]data.UserSummary, error) {
	if len(ids) == 0 {
		return map[bson.ObjectID]data.UserSummary{}, nil
	}
	s, err := d.Users.Summaries(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "")
	}
	return index(s, func(u data.UserSummary) bson.ObjectID { return u.ID }), nil
}

func (d Deps) profile(ctx context.Context, u *data.User) (*Profile, error) {
	users, err := d.userIndex(ctx, append(append([]bson.ObjectID{}, u.Followers...), u.Following...))
	if err != nil {
		return nil, err
	}
	var posts []data.PostSummary
	if len(u.Posts) > 0 {
		if posts, err = d.Posts.Summaries(ctx, u.Posts); err != nil {
			return nil, storeErr(err, "")
		}
	}
	return &Profile{
		ID:         u.ID,
		Name:       u.Name,
		Username:   u.Username,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		Bio:        u.Bio,
		Followers:  pick(u.Followers, users),
		Following:  pick(u.Following, users),
		Posts:      pick(u.Posts, index(posts, func(p data.PostSummary) bson.ObjectID { return p.ID })),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}, nil
}

func (d Deps) postViews(ctx context.Context, posts []*data.Post) ([]PostView, error) {
	var owners, commentIDs []bson.ObjectID
	for _, p := range posts {
		owners = append(owners, p.User)
		commentIDs = append(commentIDs, p.Comments...)
	}
	users, err := d.userIndex(ctx, owners)
	if err != nil {
		return nil, err
	}
	var comments []data.CommentSummary
	if len(commentIDs) > 0 {
		if comments, err = d.Comments.Summaries(ctx, commentIDs); err != nil {
			return nil, storeErr(err, "")
		}
	}
	byID := index(comments, func(c data.CommentSummary) bson.ObjectID { return c.ID })

	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		owner, ok := users[p.User]
		if !ok {
			continue
		}
		out = append(out, PostView{
			ID:        p.ID,
			Images:    p.Images,
			Caption:   p.Caption,
			User:      owner,
			Likes:     p.Likes,
			Comments:  pick(p.Comments, byID),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out, nil
}

func (d Deps) postView(ctx context.Context, p *data.Post) (*PostView, error) {
	views, err := d.postViews(ctx, []*data.Post{p})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, storeErr(data.ErrNotFound, "Post not found")
	}
	return &views[0], nil
}

func (d Deps) commentViews(ctx context.Context, comments []*data.Comment) ([]CommentView, error) {
	authors := make([]bson.ObjectID, 0, len(comments))
	for _, c := range comments {
		authors = append(authors, c.User)
	}
	users, err := d.userIndex(ctx, authors)
	if err != nil {
		return nil, err
	}
	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		author, ok := users[c.User]
		if !ok {
			continue
		}
		out = append(out, CommentView{
			ID:        c.ID,
			Comment:   c.Comment,
			Post:      c.Post,
			User:      author,
			Likes:     c.Likes,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		})
	}
	return out, nil
}

func (d Deps) messageViews(ctx context.Context, msgs []*data.Message) ([]MessageView, error) {
	var ids []bson.ObjectID
	for _, m := range msgs {
		ids = append(ids, m.Sender, m.Receiver)
	}
	users, err := d.userIndex(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		sender, ok1 := users[m.Sender]
		receiver, ok2 := users[m.Receiver]
		if !ok1 || !ok2 {
			continue
		}
		out = append(out, MessageView{
			ID:           m.ID,
			Conversation: m.Conversation,
			Text:         m.Text,
			Images:       m.Images,
			Sender:       sender,
			Receiver:     receiver,
			CreatedAt:    m.CreatedAt,
		})
	}
	return out, nil
}

func (d Deps) conversationViews(ctx context.Context, convs []*data.Conversation) ([]ConversationView, error) {
	var ids []bson.ObjectID
	for _, c := range convs {
		ids = append(ids, c.Recipients...)
	}
	users, err := d.userIndex(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, ConversationView{
			ID:         c.ID,
			Recipients: pick(c.Recipients, users),
			Text:       c.Text,
			Media:      c.Media,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		})
	}
	return out, nil
}
