package service

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/PaulBabatuyi/socialnet/internal/data"
	"github.com/PaulBabatuyi/socialnet/internal/events"
)

// memDB is an in-memory stand-in for the mongo collections. Documents are
// copied on the way in and out so callers never share slices with it.
type memDB struct {
	mu       sync.Mutex
	users    map[bson.ObjectID]*data.User
	posts    map[bson.ObjectID]*data.Post
	comments map[bson.ObjectID]*data.Comment
	convs    map[string]*data.Conversation
	messages []*data.Message
	clock    time.Time
}

func newMemDB() *memDB {
	return &memDB{
		users:    map[bson.ObjectID]*data.User{},
		posts:    map[bson.ObjectID]*data.Post{},
		comments: map[bson.ObjectID]*data.Comment{},
		convs:    map[string]*data.Conversation{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now ticks so documents get distinct, ordered timestamps.
func (m *memDB) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memDB) deps(tokens TokenIssuer) Deps {
	return Deps{
		Users:         memUsers{m},
		Posts:         memPosts{m},
		Comments:      memComments{m},
		Conversations: memConversations{m},
		Messages:      memMessages{m},
		Tokens:        tokens,
	}
}

func copyUser(u *data.User) *data.User {
	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	c.Posts = slices.Clone(u.Posts)
	return &c
}

func copyPost(p *data.Post) *data.Post {
	c := *p
	c.Images = slices.Clone(p.Images)
	c.Likes = slices.Clone(p.Likes)
	c.Comments = slices.Clone(p.Comments)
	return &c
}

func copyComment(cm *data.Comment) *data.Comment {
	c := *cm
	c.Likes = slices.Clone(cm.Likes)
	return &c
}

func addID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []bson.ObjectID, id bson.ObjectID) []bson.ObjectID {
	return slices.DeleteFunc(ids, func(v bson.ObjectID) bool { return v == id })
}

type memUsers struct{ m *memDB }

func (s memUsers) CreateUser(_ context.Context, u *data.User) (*data.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, o := range s.m.users {
		if o.Email == u.Email || o.Username == u.Username {
			return nil, data.ErrDuplicate
		}
	}
	u.ID = bson.NewObjectID()
	u.CreatedAt = s.m.now()
	if u.ProfilePic == "" {
		u.ProfilePic = data.DefaultProfilePic
	}
	s.m.users[u.ID] = copyUser(u)
	return copyUser(u), nil
}

func (s memUsers) GetUserByID(_ context.Context, id bson.ObjectID) (*data.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return copyUser(u), nil
}

func (s memUsers) GetUserByEmail(_ context.Context, email string) (*data.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, data.ErrNotFound
}

func (s memUsers) taken(match func(*data.User) bool, except bson.ObjectID) bool {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, u := range s.m.users {
		if id != except && match(u) {
			return true
		}
	}
	return false
}

func (s memUsers) EmailTaken(_ context.Context, email string, except bson.ObjectID) (bool, error) {
	return s.taken(func(u *data.User) bool { return u.Email == email }, except), nil
}

func (s memUsers) UsernameTaken(_ context.Context, username string, except bson.ObjectID) (bool, error) {
	return s.taken(func(u *data.User) bool { return u.Username == username }, except), nil
}

func (s memUsers) update(id bson.ObjectID, fn func(u *data.User)) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	u, ok := s.m.users[id]
	if !ok {
		return data.ErrNotFound
	}
	fn(u)
	return nil
}

func (s memUsers) UpdateProfile(_ context.Context, id bson.ObjectID, p data.ProfileUpdate) error {
	return s.update(id, func(u *data.User) {
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Username != nil {
			u.Username = *p.Username
		}
		if p.Email != nil {
			u.Email = *p.Email
		}
		if p.Bio != nil {
			bio := *p.Bio
			u.Bio = &bio
		}
	})
}

func (s memUsers) SetProfilePicture(_ context.Context, id bson.ObjectID, url string) error {
	return s.update(id, func(u *data.User) { u.ProfilePic = url })
}

func (s memUsers) AddFollowing(_ context.Context, id, target bson.ObjectID) error {
	return s.update(id, func(u *data.User) { u.Following = addID(u.Following, target) })
}

func (s memUsers) AddFollower(_ context.Context, id, follower bson.ObjectID) error {
	return s.update(id, func(u *data.User) { u.Followers = addID(u.Followers, follower) })
}

func (s memUsers) RemoveFollowing(_ context.Context, id, target bson.ObjectID) error {
	return s.update(id, func(u *data.User) { u.Following = removeID(u.Following, target) })
}

func (s memUsers) RemoveFollower(_ context.Context, id, follower bson.ObjectID) error {
	return s.update(id, func(u *data.User) { u.Followers = removeID(u.Followers, follower) })
}

func (s memUsers) RemoveFromAllFollowing(_ context.Context, target bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		u.Following = removeID(u.Following, target)
	}
	return nil
}

func (s memUsers) RemoveFromAllFollowers(_ context.Context, target bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, u := range s.m.users {
		u.Followers = removeID(u.Followers, target)
	}
	return nil
}

func (s memUsers) PushPost(_ context.Context, id, postID bson.ObjectID) error {
	return s.update(id, func(u *data.User) { u.Posts = append(u.Posts, postID) })
}

func (s memUsers) PullPost(_ context.Context, id, postID bson.ObjectID) error {
	return s.update(id, func(u *data.User) { u.Posts = removeID(u.Posts, postID) })
}

func (s memUsers) DeleteUser(_ context.Context, id bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.users[id]; !ok {
		return data.ErrNotFound
	}
	delete(s.m.users, id)
	return nil
}

func (s memUsers) Summaries(_ context.Context, ids []bson.ObjectID) ([]data.UserSummary, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []data.UserSummary
	for _, id := range ids {
		if u, ok := s.m.users[id]; ok {
			out = append(out, data.UserSummary{ID: u.ID, Name: u.Name, Username: u.Username, ProfilePic: u.ProfilePic})
		}
	}
	return out, nil
}

type memPosts struct{ m *memDB }

func (s memPosts) CreatePost(_ context.Context, p *data.Post) (*data.Post, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p.ID = bson.NewObjectID()
	p.CreatedAt = s.m.now()
	p.UpdatedAt = p.CreatedAt
	if p.Likes == nil {
		p.Likes = []bson.ObjectID{}
	}
	if p.Comments == nil {
		p.Comments = []bson.ObjectID{}
	}
	s.m.posts[p.ID] = copyPost(p)
	return copyPost(p), nil
}

func (s memPosts) GetPostByID(_ context.Context, id bson.ObjectID) (*data.Post, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.posts[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return copyPost(p), nil
}

func (s memPosts) list(match func(*data.Post) bool) []*data.Post {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*data.Post
	for _, p := range s.m.posts {
		if match(p) {
			out = append(out, copyPost(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s memPosts) ListPosts(context.Context) ([]*data.Post, error) {
	return s.list(func(*data.Post) bool { return true }), nil
}

func (s memPosts) ListPostsByUser(_ context.Context, userID bson.ObjectID) ([]*data.Post, error) {
	return s.list(func(p *data.Post) bool { return p.User == userID }), nil
}

func (s memPosts) update(id bson.ObjectID, fn func(p *data.Post)) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	p, ok := s.m.posts[id]
	if !ok {
		return data.ErrNotFound
	}
	fn(p)
	return nil
}

func (s memPosts) UpdatePost(_ context.Context, id bson.ObjectID, images []string, caption string) error {
	return s.update(id, func(p *data.Post) { p.Images, p.Caption = slices.Clone(images), caption })
}

func (s memPosts) DeletePost(_ context.Context, id bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.posts[id]; !ok {
		return data.ErrNotFound
	}
	delete(s.m.posts, id)
	return nil
}

func (s memPosts) DeletePosts(_ context.Context, ids []bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		delete(s.m.posts, id)
	}
	return nil
}

func (s memPosts) PushComment(_ context.Context, id, commentID bson.ObjectID) error {
	return s.update(id, func(p *data.Post) { p.Comments = append(p.Comments, commentID) })
}

func (s memPosts) PullComment(_ context.Context, id, commentID bson.ObjectID) error {
	return s.update(id, func(p *data.Post) { p.Comments = removeID(p.Comments, commentID) })
}

func (s memPosts) PullComments(_ context.Context, commentIDs []bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.posts {
		p.Comments = slices.DeleteFunc(p.Comments, func(id bson.ObjectID) bool { return slices.Contains(commentIDs, id) })
	}
	return nil
}

func (s memPosts) AddLike(_ context.Context, id, userID bson.ObjectID) error {
	return s.update(id, func(p *data.Post) { p.Likes = addID(p.Likes, userID) })
}

func (s memPosts) RemoveLike(_ context.Context, id, userID bson.ObjectID) error {
	return s.update(id, func(p *data.Post) { p.Likes = removeID(p.Likes, userID) })
}

func (s memPosts) PullLikesBy(_ context.Context, userID bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, p := range s.m.posts {
		p.Likes = removeID(p.Likes, userID)
	}
	return nil
}

func (s memPosts) Summaries(_ context.Context, ids []bson.ObjectID) ([]data.PostSummary, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []data.PostSummary
	for _, id := range ids {
		if p, ok := s.m.posts[id]; ok {
			out = append(out, data.PostSummary{ID: p.ID, Images: slices.Clone(p.Images), Caption: p.Caption})
		}
	}
	return out, nil
}

type memComments struct{ m *memDB }

func (s memComments) CreateComment(_ context.Context, c *data.Comment) (*data.Comment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c.ID = bson.NewObjectID()
	c.CreatedAt = s.m.now()
	if c.Likes == nil {
		c.Likes = []bson.ObjectID{}
	}
	s.m.comments[c.ID] = copyComment(c)
	return copyComment(c), nil
}

func (s memComments) GetCommentByID(_ context.Context, id bson.ObjectID) (*data.Comment, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.comments[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return copyComment(c), nil
}

func (s memComments) list(match func(*data.Comment) bool) []*data.Comment {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*data.Comment
	for _, c := range s.m.comments {
		if match(c) {
			out = append(out, copyComment(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s memComments) ListComments(context.Context) ([]*data.Comment, error) {
	return s.list(func(*data.Comment) bool { return true }), nil
}

func (s memComments) ListCommentsByUser(_ context.Context, userID bson.ObjectID) ([]*data.Comment, error) {
	return s.list(func(c *data.Comment) bool { return c.User == userID }), nil
}

func (s memComments) update(id bson.ObjectID, fn func(c *data.Comment)) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	c, ok := s.m.comments[id]
	if !ok {
		return data.ErrNotFound
	}
	fn(c)
	return nil
}

func (s memComments) UpdateCommentText(_ context.Context, id bson.ObjectID, text string) error {
	return s.update(id, func(c *data.Comment) { c.Comment = text })
}

func (s memComments) DeleteComment(_ context.Context, id bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.comments[id]; !ok {
		return data.ErrNotFound
	}
	delete(s.m.comments, id)
	return nil
}

func (s memComments) DeleteComments(_ context.Context, ids []bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, id := range ids {
		delete(s.m.comments, id)
	}
	return nil
}

func (s memComments) DeleteCommentsOnPosts(_ context.Context, postIDs []bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for id, c := range s.m.comments {
		if slices.Contains(postIDs, c.Post) {
			delete(s.m.comments, id)
		}
	}
	return nil
}

func (s memComments) AddLike(_ context.Context, id, userID bson.ObjectID) error {
	return s.update(id, func(c *data.Comment) { c.Likes = addID(c.Likes, userID) })
}

func (s memComments) RemoveLike(_ context.Context, id, userID bson.ObjectID) error {
	return s.update(id, func(c *data.Comment) { c.Likes = removeID(c.Likes, userID) })
}

func (s memComments) PullLikesBy(_ context.Context, userID bson.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, c := range s.m.comments {
		c.Likes = removeID(c.Likes, userID)
	}
	return nil
}

func (s memComments) Summaries(_ context.Context, ids []bson.ObjectID) ([]data.CommentSummary, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []data.CommentSummary
	for _, id := range ids {
		if c, ok := s.m.comments[id]; ok {
			out = append(out, data.CommentSummary{ID: c.ID, Comment: c.Comment, User: c.User})
		}
	}
	return out, nil
}

type memConversations struct{ m *memDB }

func (s memConversations) UpsertConversation(_ context.Context, sender, receiver bson.ObjectID, text string, media []string) (*data.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	key := data.PairKey(sender, receiver)
	now := s.m.now()
	c, ok := s.m.convs[key]
	if !ok {
		c = &data.Conversation{
			ID:         bson.NewObjectID(),
			PairKey:    key,
			Recipients: []bson.ObjectID{sender, receiver},
			CreatedAt:  now,
		}
		s.m.convs[key] = c
	}
	c.Text, c.Media, c.UpdatedAt = text, slices.Clone(media), now
	out := *c
	return &out, nil
}

func (s memConversations) ListConversationsForUser(_ context.Context, userID bson.ObjectID) ([]*data.Conversation, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*data.Conversation
	for _, c := range s.m.convs {
		if slices.Contains(c.Recipients, userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

type memMessages struct{ m *memDB }

func (s memMessages) SaveMessage(_ context.Context, msg *data.Message) (*data.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	msg.ID = bson.NewObjectID()
	msg.CreatedAt = s.m.now()
	cp := *msg
	s.m.messages = append(s.m.messages, &cp)
	return msg, nil
}

func (s memMessages) GetMessageHistory(_ context.Context, a, b bson.ObjectID, _ int64) ([]*data.Message, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []*data.Message
	for _, msg := range s.m.messages {
		if (msg.Sender == a && msg.Receiver == b) || (msg.Sender == b && msg.Receiver == a) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeTokens struct{}

func (fakeTokens) GenerateToken(id bson.ObjectID) (string, time.Time, error) {
	return "token-" + id.Hex(), time.Now().Add(time.Hour), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]any
}

func (n *recordingNotifier) SendToUser(userID string, v any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent == nil {
		n.sent = map[string][]any{}
	}
	n.sent[userID] = append(n.sent[userID], v)
	return nil
}

var errBoom = errors.New("boom")

// failingTx simulates a transaction aborting after fn ran.
type failingTx struct{}

func (failingTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	return errBoom
}
