package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is a Store backed by a MongoDB database. Each bucket maps to a
// collection; the record body is stored as binary alongside a "links"
// sub-document keyed by tag.
type Mongo struct {
	db *mongo.Database
}

// NewMongo creates a MongoDB-backed Store.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{db: db}
}

type mongoRecord struct {
	ID    string              `bson:"_id"`
	Body  primitive.Binary    `bson:"body"`
	Links map[string][]string `bson:"links,omitempty"`
}

// body returns the record body. A document upserted by SetLinks alone
// carries no body field; such a record is absent as far as Get goes.
func (r mongoRecord) body() ([]byte, error) {
	if r.Body.Data == nil {
		return nil, ErrNotFound
	}
	return r.Body.Data, nil
}

func (m *Mongo) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	var rec mongoRecord
	err := m.db.Collection(bucket).FindOne(ctx, bson.M{"_id": key}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec.body()
}

func (m *Mongo) Put(ctx context.Context, bucket, key string, body []byte) error {
	if bucket == "" {
		return ErrBadBucket
	}
	if key == "" {
		return ErrBadKey
	}

	_, err := m.db.Collection(bucket).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"body": primitive.Binary{Data: body}}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) Delete(ctx context.Context, bucket, key string) error {
	_, err := m.db.Collection(bucket).DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (m *Mongo) GenerateKey(ctx context.Context, bucket string) (string, error) {
	return uuid.NewString(), nil
}

func (m *Mongo) SetLinks(ctx context.Context, bucket, key, tag string, targets []string) error {
	field := fmt.Sprintf("links.%s", tag)

	update := bson.M{"$set": bson.M{field: targets}}
	if len(targets) == 0 {
		update = bson.M{"$unset": bson.M{field: ""}}
	}

	_, err := m.db.Collection(bucket).UpdateOne(ctx,
		bson.M{"_id": key},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *Mongo) GetLinks(ctx context.Context, bucket, key, tag string) ([]string, error) {
	var rec mongoRecord
	err := m.db.Collection(bucket).
		FindOne(ctx, bson.M{"_id": key}, options.FindOne().SetProjection(bson.M{"links": 1})).
		Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Links[tag], nil
}

// GetMany implements BatchStore via a single $in query.
func (m *Mongo) GetMany(ctx context.Context, bucket string, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}

	cursor, err := m.db.Collection(bucket).Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	result := make(map[string][]byte, len(keys))
	for cursor.Next(ctx) {
		var rec mongoRecord
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		if body, err := rec.body(); err == nil {
			result[rec.ID] = body
		}
	}
	return result, cursor.Err()
}
