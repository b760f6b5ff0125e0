// Package service holds the business rules of the social network: accounts
// and the follow graph, posts and comments, and direct messages. Handlers
// call into it with hex ids taken from the request; every failure it returns
// is an *apperr.Error.
package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/data"
	"github.com/PaulBabatuyi/socialnet/internal/events"
)

// UserStore is the subset of data.UsersStore the services use.
type UserStore interface {
	CreateUser(ctx context.Context, user *data.User) (*data.User, error)
	GetUserByID(ctx context.Context, id bson.ObjectID) (*data.User, error)
	GetUserByEmail(ctx context.Context, email string) (*data.User, error)
	EmailTaken(ctx context.Context, email string, except bson.ObjectID) (bool, error)
	UsernameTaken(ctx context.Context, username string, except bson.ObjectID) (bool, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, p data.ProfileUpdate) error
	SetProfilePicture(ctx context.Context, id bson.ObjectID, url string) error
	AddFollowing(ctx context.Context, id, target bson.ObjectID) error
	AddFollower(ctx context.Context, id, follower bson.ObjectID) error
	RemoveFollowing(ctx context.Context, id, target bson.ObjectID) error
	RemoveFollower(ctx context.Context, id, follower bson.ObjectID) error
	RemoveFromAllFollowing(ctx context.Context, target bson.ObjectID) error
	RemoveFromAllFollowers(ctx context.Context, target bson.ObjectID) error
	PushPost(ctx context.Context, id, postID bson.ObjectID) error
	PullPost(ctx context.Context, id, postID bson.ObjectID) error
	DeleteUser(ctx context.Context, id bson.ObjectID) error
	Summaries(ctx context.Context, ids []bson.ObjectID) ([]data.UserSummary, error)
}

// PostStore is the subset of data.PostsStore the services use.
type PostStore interface {
	CreatePost(ctx context.Context, post *data.Post) (*data.Post, error)
	GetPostByID(ctx context.Context, id bson.ObjectID) (*data.Post, error)
	ListPosts(ctx context.Context) ([]*data.Post, error)
	ListPostsByUser(ctx context.Context, userID bson.ObjectID) ([]*data.Post, error)
	UpdatePost(ctx context.Context, id bson.ObjectID, images []string, caption string) error
	DeletePost(ctx context.Context, id bson.ObjectID) error
	DeletePosts(ctx context.Context, ids []bson.ObjectID) error
	PushComment(ctx context.Context, id, commentID bson.ObjectID) error
	PullComment(ctx context.Context, id, commentID bson.ObjectID) error
	PullComments(ctx context.Context, commentIDs []bson.ObjectID) error
	AddLike(ctx context.Context, id, userID bson.ObjectID) error
	RemoveLike(ctx context.Context, id, userID bson.ObjectID) error
	PullLikesBy(ctx context.Context, userID bson.ObjectID) error
	Summaries(ctx context.Context, ids []bson.ObjectID) ([]data.PostSummary, error)
}

// CommentStore is the subset of data.CommentsStore the services use.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *data.Comment) (*data.Comment, error)
	GetCommentByID(ctx context.Context, id bson.ObjectID) (*data.Comment, error)
	ListComments(ctx context.Context) ([]*data.Comment, error)
	ListCommentsByUser(ctx context.Context, userID bson.ObjectID) ([]*data.Comment, error)
	UpdateCommentText(ctx context.Context, id bson.ObjectID, text string) error
	DeleteComment(ctx context.Context, id bson.ObjectID) error
	DeleteComments(ctx context.Context, ids []bson.ObjectID) error
	DeleteCommentsOnPosts(ctx context.Context, postIDs []bson.ObjectID) error
	AddLike(ctx context.Context, id, userID bson.ObjectID) error
	RemoveLike(ctx context.Context, id, userID bson.ObjectID) error
	PullLikesBy(ctx context.Context, userID bson.ObjectID) error
	Summaries(ctx context.Context, ids []bson.ObjectID) ([]data.CommentSummary, error)
}

// ConversationStore is the subset of data.ConversationsStore the services use.
type ConversationStore interface {
	UpsertConversation(ctx context.Context, sender, receiver bson.ObjectID, text string, media []string) (*data.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID bson.ObjectID) ([]*data.Conversation, error)
}

// MessageStore is the subset of data.MessagesStore the services use.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *data.Message) (*data.Message, error)
	GetMessageHistory(ctx context.Context, user1, user2 bson.ObjectID, limit int64) ([]*data.Message, error)
}

// Transactor runs fn as one logical unit of writes.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenIssuer issues session tokens. Implemented by auth.JWTManager.
type TokenIssuer interface {
	GenerateToken(userID bson.ObjectID) (string, time.Time, error)
}

// Notifier pushes a payload to the live connections of a user.
type Notifier interface {
	SendToUser(userID string, v any) error
}

// Deps bundles what the services need. Tx, Events, Notifier and Logger may
// be nil.
type Deps struct {
	Users         UserStore
	Posts         PostStore
	Comments      CommentStore
	Conversations ConversationStore
	Messages      MessageStore
	Tx            Transactor
	Tokens        TokenIssuer
	Events        events.Publisher
	Notifier      Notifier
	Logger        *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Tx == nil {
		d.Tx = direct{}
	}
	return d
}

type direct struct{}

func (direct) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// publish is fire and forget: a broker outage never fails the request.
func (d Deps) publish(ctx context.Context, typ string, actor, subject bson.ObjectID) {
	e := events.Event{Type: typ, ActorID: actor.Hex(), At: time.Now().UTC()}
	if !subject.IsZero() {
		e.Subject = subject.Hex()
	}
	if err := d.Events.Publish(ctx, e); err != nil {
		d.Logger.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}

func parseID(hex, what string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		return bson.ObjectID{}, apperr.New(apperr.Validation, "Invalid "+what+" id!")
	}
	return id, nil
}

// storeErr maps a store failure onto the taxonomy. notFound is the message
// used when the store reports a missing document.
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, data.ErrNotFound):
		return apperr.New(apperr.NotFound, notFound)
	default:
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(apperr.Internal, "storage failure", err)
	}
}
