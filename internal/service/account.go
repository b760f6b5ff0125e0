package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/PaulBabatuyi/socialnet/internal/apperr"
	"github.com/PaulBabatuyi/socialnet/internal/auth"
	"github.com/PaulBabatuyi/socialnet/internal/data"
	"github.com/PaulBabatuyi/socialnet/internal/events"
	"github.com/PaulBabatuyi/socialnet/internal/normalize"
	"github.com/PaulBabatuyi/socialnet/internal/validate"
)

const (
	msgEmailTaken    = "This email is associated to another account!"
	msgUsernameTaken = "This username is already taken!"
	msgAccountTaken  = "An account with this email or username already exists!"
	msgUserNotFound  = "User not found!"
)

// AccountService implements registration, login, profiles, the follow graph
// and account deletion.
type AccountService struct {
	d Deps
}

// NewAccountService returns an AccountService backed by d.
func NewAccountService(d Deps) *AccountService {
	return &AccountService{d: d.withDefaults()}
}

// Registration is the input of Register.
type Registration struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is an issued token.
type Session struct {
	Token     string
	UserID    bson.ObjectID
	ExpiresAt time.Time
}

// Register creates a user and issues a token for it.
func (s *AccountService) Register(ctx context.Context, r Registration) (*Session, error) {
	r.Email = normalize.Email(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	if err := validate.Struct(validate.Registration(r)); err != nil {
		return nil, err
	}

	if taken, err := s.d.Users.EmailTaken(ctx, r.Email, bson.ObjectID{}); err != nil {
		return nil, storeErr(err, "")
	} else if taken {
		return nil, apperr.New(apperr.Conflict, msgEmailTaken)
	}
	if taken, err := s.d.Users.UsernameTaken(ctx, r.Username, bson.ObjectID{}); err != nil {
		return nil, storeErr(err, "")
	} else if taken {
		return nil, apperr.New(apperr.Conflict, msgUsernameTaken)
	}

	hashed, err := auth.HashPassword(r.Password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to hash password", err)
	}

	user, err := s.d.Users.CreateUser(ctx, &data.User{
		Name:     r.Name,
		Username: r.Username,
		Email:    r.Email,
		Password: hashed,
	})
	if errors.Is(err, data.ErrDuplicate) {
		// lost a race with a concurrent registration; the index does not say which field
		return nil, apperr.New(apperr.Conflict, msgAccountTaken)
	}
	if err != nil {
		return nil, storeErr(err, "")
	}

	sess, err := s.issue(user.ID)
	if err != nil {
		return nil, err
	}
	s.d.Logger.Info("user registered", zap.String("user_id", user.ID.Hex()))
	s.d.publish(ctx, events.UserRegistered, user.ID, bson.ObjectID{})
	return sess, nil
}

// Login verifies credentials and issues a token.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalize.Email(email)
	if err := validate.Struct(validate.Login{Email: email, Password: password}); err != nil {
		return nil, err
	}

	user, err := s.d.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err, "No account is found with this email!")
	}
	if err := auth.CheckPassword(user.Password, password); err != nil {
		return nil, apperr.New(apperr.Auth, "Wrong credentials!")
	}
	return s.issue(user.ID)
}

func (s *AccountService) issue(id bson.ObjectID) (*Session, error) {
	token, exp, err := s.d.Tokens.GenerateToken(id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "failed to generate token", err)
	}
	return &Session{Token: token, UserID: id, ExpiresAt: exp}, nil
}

// Profile returns the expanded profile of userID.
func (s *AccountService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.d.profile(ctx, user)
}

// ProfileEdit is the input of EditProfile. Empty strings and a nil Bio keep
// the current value.
type ProfileEdit struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Bio      *string `json:"bio"`
}

// EditProfile updates the fields of e that differ from the stored user.
func (s *AccountService) EditProfile(ctx context.Context, userID string, e ProfileEdit) (*Profile, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	var upd data.ProfileUpdate
	if name := strings.TrimSpace(e.Name); name != "" && name != user.Name {
		upd.Name = &name
	}
	if username := strings.TrimSpace(e.Username); username != "" && username != user.Username {
		upd.Username = &username
	}
	if email := normalize.Email(e.Email); email != "" && email != user.Email {
		upd.Email = &email
	}
	if e.Bio != nil && (user.Bio == nil || *e.Bio != *user.Bio) {
		upd.Bio = e.Bio
	}
	if upd.Empty() {
		return s.d.profile(ctx, user)
	}

	if err := validate.Struct(validate.Profile{
		Name:     deref(upd.Name),
		Username: deref(upd.Username),
		Email:    deref(upd.Email),
	}); err != nil {
		return nil, err
	}
	if upd.Email != nil {
		if taken, err := s.d.Users.EmailTaken(ctx, *upd.Email, user.ID); err != nil {
			return nil, storeErr(err, "")
		} else if taken {
			return nil, apperr.New(apperr.Conflict, msgEmailTaken)
		}
	}
	if upd.Username != nil {
		if taken, err := s.d.Users.UsernameTaken(ctx, *upd.Username, user.ID); err != nil {
			return nil, storeErr(err, "")
		} else if taken {
			return nil, apperr.New(apperr.Conflict, msgUsernameTaken)
		}
	}

	err = s.d.Users.UpdateProfile(ctx, user.ID, upd)
	if errors.Is(err, data.ErrDuplicate) {
		return nil, apperr.New(apperr.Conflict, "This email or username is already taken!")
	}
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	return s.Profile(ctx, userID)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// SetProfilePicture replaces the picture of userID.
func (s *AccountService) SetProfilePicture(ctx context.Context, userID, url string) (*Profile, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperr.New(apperr.Validation, "Please select an image!")
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.d.Users.SetProfilePicture(ctx, user.ID, url); err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	return s.Profile(ctx, userID)
}

// Follow makes userID follow targetID and returns the follower's profile.
// An edge with only one side recorded is completed instead of rejected.
func (s *AccountService) Follow(ctx context.Context, userID, targetID string) (*Profile, error) {
	user, target, err := s.pair(ctx, userID, targetID, "You cannot follow yourself!")
	if err != nil {
		return nil, err
	}
	if slices.Contains(user.Following, target.ID) && slices.Contains(target.Followers, user.ID) {
		return nil, apperr.New(apperr.Conflict, "You are already following this user!")
	}

	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.d.Users.AddFollowing(ctx, user.ID, target.ID); err != nil {
			return err
		}
		return s.d.Users.AddFollower(ctx, target.ID, user.ID)
	})
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	s.d.publish(ctx, events.UserFollowed, user.ID, target.ID)
	return s.Profile(ctx, userID)
}

// Unfollow removes the edge userID -> targetID from both sides. Whichever
// side is present is removed; it fails only when neither is.
func (s *AccountService) Unfollow(ctx context.Context, userID, targetID string) (*Profile, error) {
	user, target, err := s.pair(ctx, userID, targetID, "You cannot unfollow yourself!")
	if err != nil {
		return nil, err
	}
	if !slices.Contains(user.Following, target.ID) && !slices.Contains(target.Followers, user.ID) {
		return nil, apperr.New(apperr.Conflict, "You are not following this user!")
	}

	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.d.Users.RemoveFollowing(ctx, user.ID, target.ID); err != nil {
			return err
		}
		return s.d.Users.RemoveFollower(ctx, target.ID, user.ID)
	})
	if err != nil {
		return nil, storeErr(err, msgUserNotFound)
	}
	s.d.publish(ctx, events.UserUnfollowed, user.ID, target.ID)
	return s.Profile(ctx, userID)
}

// DeleteAccount removes userID together with its graph edges, posts,
// comments and likes. Every step matches by reference so a retried or
// resumed cascade converges.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.user(ctx, userID)
	if err != nil {
		return err
	}

	posts, err := s.d.Posts.ListPostsByUser(ctx, user.ID)
	if err != nil {
		return storeErr(err, "")
	}
	postIDs := slices.Clone(user.Posts)
	for _, p := range posts {
		if !slices.Contains(postIDs, p.ID) {
			postIDs = append(postIDs, p.ID)
		}
	}
	comments, err := s.d.Comments.ListCommentsByUser(ctx, user.ID)
	if err != nil {
		return storeErr(err, "")
	}
	commentIDs := make([]bson.ObjectID, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
	}

	err = s.d.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		steps := []func(context.Context) error{
			func(ctx context.Context) error { return s.d.Users.RemoveFromAllFollowing(ctx, user.ID) },
			func(ctx context.Context) error { return s.d.Users.RemoveFromAllFollowers(ctx, user.ID) },
			func(ctx context.Context) error { return s.d.Posts.PullLikesBy(ctx, user.ID) },
			func(ctx context.Context) error { return s.d.Comments.PullLikesBy(ctx, user.ID) },
			func(ctx context.Context) error { return s.d.Posts.PullComments(ctx, commentIDs) },
			func(ctx context.Context) error { return s.d.Comments.DeleteComments(ctx, commentIDs) },
			func(ctx context.Context) error { return s.d.Comments.DeleteCommentsOnPosts(ctx, postIDs) },
			func(ctx context.Context) error { return s.d.Posts.DeletePosts(ctx, postIDs) },
			func(ctx context.Context) error { return s.d.Users.DeleteUser(ctx, user.ID) },
		}
		for _, step := range steps {
			if err := step(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return storeErr(err, msgUserNotFound)
	}

	s.d.Logger.Info("user deleted",
		zap.String("user_id", user.ID.Hex()),
		zap.Int("posts", len(postIDs)),
		zap.Int("comments", len(commentIDs)))
	s.d.publish(ctx, events.UserDeleted, user.ID, bson.ObjectID{})
	return nil
}

// user loads the caller or the user named by a path parameter.
func (s *AccountService) user(ctx context.Context, id string) (*data.User, error) {
	return loadUser(ctx, s.d, id, msgUserNotFound)
}

// pair loads the caller and the target. Ids are compared parsed so that a
// differently cased hex of the caller's own id is still a self reference.
func (s *AccountService) pair(ctx context.Context, userID, targetID, selfMsg string) (*data.User, *data.User, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	tid, err := parseID(targetID, "user")
	if err != nil {
		return nil, nil, err
	}
	if tid == user.ID {
		return nil, nil, apperr.New(apperr.Validation, selfMsg)
	}
	target, err := s.d.Users.GetUserByID(ctx, tid)
	if err != nil {
		return nil, nil, storeErr(err, "User to follow not found!")
	}
	return user, target, nil
}

func loadUser(ctx context.Context, d Deps, id, notFound string) (*data.User, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := d.Users.GetUserByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, notFound)
	}
	return user, nil
}
