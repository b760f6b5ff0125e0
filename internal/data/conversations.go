package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConversationsStore provides conversation database operations.
type ConversationsStore struct {
	collection
}

// NewConversationsStore returns a ConversationsStore using the given collection.
func NewConversationsStore(coll *mongo.Collection) *ConversationsStore {
	return &ConversationsStore{collection{coll: coll}}
}

// PairKey returns the order-independent key of a pair of users.
func PairKey(a, b bson.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

// UpsertConversation resolves the single conversation between sender and
// receiver, creating it if needed, and records text/media as its latest
// snapshot. Either ordering of the pair resolves to the same document.
func (s *ConversationsStore) UpsertConversation(ctx context.Context, sender, receiver bson.ObjectID, text string, media []string) (*Conversation, error) {
	now := time.Now()
	filter := bson.M{"pair_key": PairKey(sender, receiver)}
	update := bson.M{
		"$set": bson.M{
			"text":       text,
			"media":      nonNilStrings(media),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"recipients": []bson.ObjectID{sender, receiver},
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var conv Conversation
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if retryUpsert(ctx, err) {
		// a concurrent upsert for the same pair inserted first; the retry matches it
		err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversationsForUser returns the conversations userID takes part in,
// most recently updated first.
func (s *ConversationsStore) ListConversationsForUser(ctx context.Context, userID bson.ObjectID) ([]*Conversation, error) {
	var convs []*Conversation
	err := s.find(ctx, bson.M{"recipients": userID}, &convs,
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	return convs, err
}

// retryUpsert reports whether a lost upsert race can be retried in place.
// Inside a transaction the server has already aborted it, so the error is
// left to the transaction runner.
func retryUpsert(ctx context.Context, err error) bool {
	return mongo.IsDuplicateKeyError(err) && mongo.SessionFromContext(ctx) == nil
}
