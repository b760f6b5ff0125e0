package data

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DefaultProfilePic is stored for users who have not uploaded a picture.
const DefaultProfilePic = "https://res.cloudinary.com/social/image/upload/v1/defaults/avatar.png"

var (
	// ErrNotFound is returned when a document looked up by id or key is absent.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a write hits a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

// User maps to the users collection.
type User struct {
	ID         bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name       string          `bson:"name" json:"name"`
	Username   string          `bson:"username" json:"username"`
	Email      string          `bson:"email" json:"email"`
	Password   string          `bson:"password" json:"-"`
	Followers  []bson.ObjectID `bson:"followers" json:"followers"`
	Following  []bson.ObjectID `bson:"following" json:"following"`
	Posts      []bson.ObjectID `bson:"posts" json:"posts"`
	ProfilePic string          `bson:"profile_pic" json:"profilepic"`
	Bio        *string         `bson:"bio" json:"bio"`
	CreatedAt  time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Post maps to the posts collection. Images holds 1 to 5 URLs.
type Post struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Images    []string        `bson:"images" json:"images"`
	Caption   string          `bson:"caption,omitempty" json:"caption,omitempty"`
	User      bson.ObjectID   `bson:"user" json:"user"`
	Likes     []bson.ObjectID `bson:"likes" json:"likes"`
	Comments  []bson.ObjectID `bson:"comments" json:"comments"`
	CreatedAt time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Comment maps to the comments collection.
type Comment struct {
	ID        bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Comment   string          `bson:"comment" json:"comment"`
	Post      bson.ObjectID   `bson:"post" json:"post"`
	User      bson.ObjectID   `bson:"user" json:"user"`
	Likes     []bson.ObjectID `bson:"likes" json:"likes"`
	CreatedAt time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Conversation maps to the conversations collection. There is at most one
// conversation per unordered pair of users; PairKey is the canonical form of
// that pair and carries a unique index.
type Conversation struct {
	ID         bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	PairKey    string          `bson:"pair_key" json:"-"`
	Recipients []bson.ObjectID `bson:"recipients" json:"recipients"`
	Text       string          `bson:"text" json:"text"`
	Media      []string        `bson:"media" json:"media"`
	CreatedAt  time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `bson:"updated_at" json:"updatedAt"`
}

// Message maps to the messages collection.
type Message struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Conversation bson.ObjectID `bson:"conversation" json:"conversation"`
	Text         string        `bson:"text,omitempty" json:"text,omitempty"`
	Images       []string      `bson:"images,omitempty" json:"images,omitempty"`
	Sender       bson.ObjectID `bson:"sender" json:"sender"`
	Receiver     bson.ObjectID `bson:"receiver" json:"receiver"`
	CreatedAt    time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the projection of a user embedded in other documents'
// expanded form.
type UserSummary struct {
	ID         bson.ObjectID `bson:"_id" json:"_id"`
	Name       string        `bson:"name" json:"name"`
	Username   string        `bson:"username" json:"username"`
	ProfilePic string        `bson:"profile_pic" json:"profilepic"`
}

// PostSummary is the projection of a post shown on a profile.
type PostSummary struct {
	ID      bson.ObjectID `bson:"_id" json:"_id"`
	Images  []string      `bson:"images" json:"images"`
	Caption string        `bson:"caption,omitempty" json:"caption,omitempty"`
}

// CommentSummary is the projection of a comment shown under a post.
type CommentSummary struct {
	ID      bson.ObjectID `bson:"_id" json:"_id"`
	Comment string        `bson:"comment" json:"comment"`
	User    bson.ObjectID `bson:"user" json:"user"`
}

// ProfileUpdate lists the user fields an edit may change; nil means keep.
type ProfileUpdate struct {
	Name     *string
	Username *string
	Email    *string
	Bio      *string
}

// Empty reports whether the update changes nothing.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Username == nil && p.Email == nil && p.Bio == nil
}
