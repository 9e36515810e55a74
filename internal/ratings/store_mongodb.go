package ratings

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoDBStore implements Store for MongoDB. Documents are keyed by model id.
type MongoDBStore struct {
	collection *mongo.Collection
}

// NewMongoDBStore uses the rating_overrides collection of database.
func NewMongoDBStore(database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &MongoDBStore{collection: database.Collection("rating_overrides")}, nil
}

// Load returns every stored override.
func (s *MongoDBStore) Load(ctx context.Context) (map[string]Override, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query rating overrides: %w", err)
	}

	var docs []Override
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode rating overrides: %w", err)
	}

	overrides := make(map[string]Override, len(docs))
	for _, o := range docs {
		overrides[o.ModelID] = o
	}
	return overrides, nil
}

// Save replaces the model's document, inserting it when absent.
func (s *MongoDBStore) Save(ctx context.Context, o Override) error {
	_, err := s.collection.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: o.ModelID}},
		o,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rating override: %w", err)
	}
	return nil
}

// Close is a no-op; the shared client is closed by its owner.
func (s *MongoDBStore) Close() error {
	return nil
}
