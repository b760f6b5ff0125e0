// Package db manages MongoDB connections and collections.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Collection names.
const (
	Users         = "users"
	Posts         = "posts"
	Comments      = "comments"
	Conversations = "conversations"
	Messages      = "messages"
)

// Client wraps mongo.Client and exposes collections.
type Client struct {
	client *mongo.Client
	db     *mongo.Database

	// transactions requires a replica set or sharded cluster
	transactions bool
}

// Option configures a Client.
type Option func(*Client)

// WithTransactions makes WithTransaction run its callback inside a
// multi-document transaction.
func WithTransactions(enabled bool) Option {
	return func(c *Client) { c.transactions = enabled }
}

// New connects to MongoDB and returns a Client for the named database.
func New(ctx context.Context, mongoURI, database string, opts ...Option) (*Client, error) {
	clientOpts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c := &Client{client: client, db: client.Database(database)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Collection returns the named collection.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Ping checks the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// WithTransaction runs fn as one logical unit. With transactions enabled the
// writes fn performs through ctx commit or abort together and transient
// errors are retried by the driver; otherwise fn runs directly and relies on
// its steps being idempotent.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.transactions {
		return fn(ctx)
	}
	sess, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(txCtx context.Context) (interface{}, error) {
		return nil, fn(txCtx)
	})
	return err
}

// CreateIndexes creates the indexes the stores rely on.
func (c *Client) CreateIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		Users: {
			// uniqueness of email and username is enforced here, not only by
			// the pre-insert lookups
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		Posts: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
		Comments: {
			{Keys: bson.D{{Key: "post", Value: 1}}},
			{Keys: bson.D{{Key: "user", Value: 1}}},
		},
		Conversations: {
			{Keys: bson.D{{Key: "pair_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "recipients", Value: 1}, {Key: "updated_at", Value: -1}}},
		},
		Messages: {
			{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "conversation", Value: 1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := c.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}
