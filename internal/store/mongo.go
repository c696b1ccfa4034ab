package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore implements Store on a MongoDB database. Parent documents
// live in their named collection keyed by _id; child documents live in
// the child collection keyed by "parentID:childID" so the
// (parent, child) pair stays an idempotent upsert key.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// MongoConfig carries connection settings.
type MongoConfig struct {
	URI           string
	Database      string
	RetryCount    int
	RetryInterval time.Duration
}

// NewMongoStore connects with retries and verifies the connection with
// a ping before returning.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(cfg.URI)

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var lastErr error
	for i := 0; i <= cfg.RetryCount; i++ {
		client, err := mongo.Connect(ctx, clientOpts)
		if err == nil {
			if err = client.Ping(ctx, readpref.Primary()); err == nil {
				return &MongoStore{client: client, db: client.Database(cfg.Database)}, nil
			}
			_ = client.Disconnect(ctx)
		}
		lastErr = err

		if i < cfg.RetryCount {
			time.Sleep(interval)
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after retries: %w", lastErr)
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Upsert merges fields into the document, creating it when absent.
func (s *MongoStore) Upsert(ctx context.Context, collection, id string, fields Fields) (Fields, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	res := s.db.Collection(collection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(fields)},
		opts,
	)

	var doc bson.M
	if err := res.Decode(&doc); err != nil {
		return nil, fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return fieldsFromBSON(doc), nil
}

// Get fetches a document's fields or ErrNotFound.
func (s *MongoStore) Get(ctx context.Context, collection, id string) (Fields, error) {
	var doc bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return fieldsFromBSON(doc), nil
}

// AppendChild upserts a child document keyed by (parentID, childID).
func (s *MongoStore) AppendChild(ctx context.Context, parentID, childCollection, childID string, fields Fields) error {
	doc := bson.M{"parent_id": parentID}
	for k, v := range fields {
		doc[k] = v
	}

	_, err := s.db.Collection(childCollection).ReplaceOne(
		ctx,
		bson.M{"_id": parentID + ":" + childID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("append %s/%s/%s: %w", parentID, childCollection, childID, err)
	}
	return nil
}

func fieldsFromBSON(doc bson.M) Fields {
	out := make(Fields, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}
