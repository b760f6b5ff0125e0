package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// UsersStore performs user DB operations.
type UsersStore struct {
	collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{collection{coll: coll}}
}

// CreateUser inserts a new user document. The password must already be
// hashed. Returns ErrDuplicate if the email or username index rejects it.
func (u *UsersStore) CreateUser(ctx context.Context, user *User) (*User, error) {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	if user.ProfilePic == "" {
		user.ProfilePic = DefaultProfilePic
	}
	// arrays must exist for $push/$addToSet to work later
	user.Followers = nonNilIDs(user.Followers)
	user.Following = nonNilIDs(user.Following)
	user.Posts = nonNilIDs(user.Posts)

	id, err := u.insert(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

// GetUserByID finds a user by ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	if err := u.findByID(ctx, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail finds a user by (normalized) email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := u.findOne(ctx, bson.M{"email": email}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// EmailTaken reports whether another user than except uses email.
// Pass the zero ObjectID to check against every user.
func (u *UsersStore) EmailTaken(ctx context.Context, email string, except bson.ObjectID) (bool, error) {
	return u.taken(ctx, "email", email, except)
}

// UsernameTaken reports whether another user than except uses username.
func (u *UsersStore) UsernameTaken(ctx context.Context, username string, except bson.ObjectID) (bool, error) {
	return u.taken(ctx, "username", username, except)
}

func (u *UsersStore) taken(ctx context.Context, field, value string, except bson.ObjectID) (bool, error) {
	filter := bson.M{field: value}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	count, err := u.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile sets the non-nil fields of p.
func (u *UsersStore) UpdateProfile(ctx context.Context, id bson.ObjectID, p ProfileUpdate) error {
	set := bson.M{"updated_at": time.Now()}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Username != nil {
		set["username"] = *p.Username
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Bio != nil {
		set["bio"] = *p.Bio
	}
	return u.updateByID(ctx, id, bson.M{"$set": set})
}

// SetProfilePicture replaces the user's picture URL.
func (u *UsersStore) SetProfilePicture(ctx context.Context, id bson.ObjectID, url string) error {
	return u.updateByID(ctx, id, bson.M{"$set": bson.M{"profile_pic": url, "updated_at": time.Now()}})
}

// AddFollowing records that id follows target. $addToSet keeps a retried
// write from duplicating the edge.
func (u *UsersStore) AddFollowing(ctx context.Context, id, target bson.ObjectID) error {
	return u.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"following": target}})
}

// AddFollower records that follower follows id.
func (u *UsersStore) AddFollower(ctx context.Context, id, follower bson.ObjectID) error {
	return u.updateByID(ctx, id, bson.M{"$addToSet": bson.M{"followers": follower}})
}

// RemoveFollowing removes target from id's following list.
func (u *UsersStore) RemoveFollowing(ctx context.Context, id, target bson.ObjectID) error {
	return u.updateByID(ctx, id, bson.M{"$pull": bson.M{"following": target}})
}

// RemoveFollower removes follower from id's followers list.
func (u *UsersStore) RemoveFollower(ctx context.Context, id, follower bson.ObjectID) error {
	return u.updateByID(ctx, id, bson.M{"$pull": bson.M{"followers": follower}})
}

// RemoveFromAllFollowing removes target from the following list of every
// user that references it. Matching by reference rather than by target's own
// followers list also clears half-written edges.
func (u *UsersStore) RemoveFromAllFollowing(ctx context.Context, target bson.ObjectID) error {
	return u.pullEverywhere(ctx, "following", target)
}

// RemoveFromAllFollowers removes target from the followers list of every
// user that references it.
func (u *UsersStore) RemoveFromAllFollowers(ctx context.Context, target bson.ObjectID) error {
	return u.pullEverywhere(ctx, "followers", target)
}

func (u *UsersStore) pullEverywhere(ctx context.Context, field string, target bson.ObjectID) error {
	_, err := u.coll.UpdateMany(ctx,
		bson.M{field: target},
		bson.M{"$pull": bson.M{field: target}},
	)
	return err
}

// PushPost appends postID to the user's posts.
func (u *UsersStore) PushPost(ctx context.Context, id, postID bson.ObjectID) error {
	return u.updateByID(ctx, id, bson.M{"$push": bson.M{"posts": postID}})
}

// PullPost removes postID from the user's posts.
func (u *UsersStore) PullPost(ctx context.Context, id, postID bson.ObjectID) error {
	return u.updateByID(ctx, id, bson.M{"$pull": bson.M{"posts": postID}})
}

// DeleteUser removes the user document.
func (u *UsersStore) DeleteUser(ctx context.Context, id bson.ObjectID) error {
	return u.deleteByID(ctx, id)
}

// Summaries returns the id/name/username/picture projection of the given users.
func (u *UsersStore) Summaries(ctx context.Context, ids []bson.ObjectID) ([]UserSummary, error) {
	var out []UserSummary
	if err := u.project(ctx, ids, []string{"_id", "name", "username", "profile_pic"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nonNilIDs(ids []bson.ObjectID) []bson.ObjectID {
	if ids == nil {
		return []bson.ObjectID{}
	}
	return ids
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
