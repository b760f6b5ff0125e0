package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// These tests are integration tests and require a running MongoDB instance.
// Set MONGODB_URI in the environment before running them.

func connect(t *testing.T, opts ...Option) *Client {
	t.Helper()
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set; skipping integration test")
	}
	c, err := New(context.Background(), uri, "social_db_test", opts...)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	t.Cleanup(func() {
		for _, name := range []string{Users, Posts, Comments, Conversations, Messages} {
			_ = c.Collection(name).Drop(context.Background())
		}
		_ = c.Close(context.Background())
	})
	return c
}

func TestNewAndCreateIndexes(t *testing.T) {
	c := connect(t)
	ctx := context.Background()

	if err := c.CreateIndexes(ctx); err != nil {
		t.Fatalf("CreateIndexes failed: %v", err)
	}

	users := c.Collection(Users)
	if _, err := users.InsertOne(ctx, bson.M{"email": "a@x.com", "username": "alice01"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	_, err := users.InsertOne(ctx, bson.M{"email": "a@x.com", "username": "other01"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Fatalf("expected duplicate key error on email, got %v", err)
	}
}

func TestWithTransactionDisabledRunsDirectly(t *testing.T) {
	c := connect(t)
	ctx := context.Background()

	want := errors.New("step failed")
	err := c.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := c.Collection(Posts).InsertOne(ctx, bson.M{"caption": "kept"}); err != nil {
			return err
		}
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected callback error, got %v", err)
	}

	// without a transaction the first write is not rolled back
	n, err := c.Collection(Posts).CountDocuments(ctx, bson.M{"caption": "kept"})
	if err != nil || n != 1 {
		t.Fatalf("expected the write to persist: n=%d err=%v", n, err)
	}
}
