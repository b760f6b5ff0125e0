// Package data provides DB models and stores.
package data

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// collection holds the helpers every store shares.
type collection struct {
	coll *mongo.Collection
}

func (c collection) findByID(ctx context.Context, id bson.ObjectID, out any) error {
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func (c collection) findOne(ctx context.Context, filter bson.M, out any) error {
	err := c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

// updateByID applies update to one document and reports ErrNotFound when
// nothing matched.
func (c collection) updateByID(ctx context.Context, id bson.ObjectID, update bson.M) error {
	res, err := c.coll.UpdateByID(ctx, id, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection) deleteByID(ctx context.Context, id bson.ObjectID) error {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection) insert(ctx context.Context, doc any) (bson.ObjectID, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bson.ObjectID{}, ErrDuplicate
		}
		return bson.ObjectID{}, err
	}
	return res.InsertedID.(bson.ObjectID), nil
}

func (c collection) find(ctx context.Context, filter bson.M, out any, opts ...options.Lister[options.FindOptions]) error {
	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

// project loads the given fields of the documents with the given ids. It is
// the read side of a reference join: callers order and filter the results.
func (c collection) project(ctx context.Context, ids []bson.ObjectID, fields []string, out any) error {
	if len(ids) == 0 {
		return nil
	}
	proj := bson.D{}
	for _, f := range fields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return c.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, out, options.Find().SetProjection(proj))
}
