package data

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MessagesStore provides message database operations.
type MessagesStore struct {
	collection
}

// NewMessagesStore returns a MessagesStore using given collection.
func NewMessagesStore(coll *mongo.Collection) *MessagesStore {
	return &MessagesStore{collection{coll: coll}}
}

// SaveMessage inserts a message document and returns the saved record.
func (m *MessagesStore) SaveMessage(ctx context.Context, msg *Message) (*Message, error) {
	now := time.Now()
	msg.CreatedAt, msg.UpdatedAt = now, now

	id, err := m.insert(ctx, msg)
	if err != nil {
		return nil, err
	}
	msg.ID = id
	return msg, nil
}

// GetMessageHistory returns messages exchanged between two users in either
// direction, oldest first. A positive limit keeps only the most recent ones.
func (m *MessagesStore) GetMessageHistory(ctx context.Context, user1, user2 bson.ObjectID, limit int64) ([]*Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	filter := bson.M{
		"$or": bson.A{
			bson.M{"sender": user1, "receiver": user2},
			bson.M{"sender": user2, "receiver": user1},
		},
	}

	var messages []*Message
	if err := m.find(ctx, filter, &messages, opts); err != nil {
		return nil, err
	}

	// fetched newest first so the limit keeps the tail; flip to chronological
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
