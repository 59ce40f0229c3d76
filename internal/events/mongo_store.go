package events

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "events"

// MongoStore keeps events in the events collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore binds the store to db.events.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the {identity, created_at desc} index used by Recent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "identity", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("identity_created_at"),
	})
	if err != nil {
		return fmt.Errorf("failed to create events index: %w", err)
	}
	return nil
}

// Append inserts one document.
func (s *MongoStore) Append(ctx context.Context, event *Event) error {
	if _, err := s.collection.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Recent reads the identity's newest documents.
func (s *MongoStore) Recent(ctx context.Context, identity string, n int) ([]Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(n))
	cursor, err := s.collection.Find(ctx, bson.M{"identity": identity}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]Event, 0, n)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return out, nil
}
