package cds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOverrideStore is a durable OverrideStore backed by MongoDB, the same
// connect/index/insert/find shape the teacher uses for its append-only
// event log, adapted from generic events to override records.
type MongoOverrideStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoOverrideStore connects to mongoURI and prepares the overrides
// collection with the indexes override queries need.
func NewMongoOverrideStore(ctx context.Context, mongoURI string) (*MongoOverrideStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("cds: failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("cds: failed to ping mongodb: %w", err)
	}

	collection := client.Database("cdshooks").Collection("overrides")

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "patientId", Value: 1}}, Options: options.Index()},
		{Keys: bson.D{{Key: "recordedAt", Value: 1}}, Options: options.Index()},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return nil, fmt.Errorf("cds: failed to create override indexes: %w", err)
	}

	return &MongoOverrideStore{client: client, collection: collection}, nil
}

// Close disconnects the underlying Mongo client.
func (s *MongoOverrideStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Record implements OverrideStore.
func (s *MongoOverrideStore) Record(ctx context.Context, rec OverrideRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	_, err := s.collection.InsertOne(ctx, rec)
	if err != nil {
		return fmt.Errorf("cds: failed to insert override record: %w", err)
	}
	return nil
}

// ByPatient implements OverrideStore.
func (s *MongoOverrideStore) ByPatient(ctx context.Context, patientID string) ([]OverrideRecord, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"patientId": patientID})
	if err != nil {
		return nil, fmt.Errorf("cds: failed to query overrides: %w", err)
	}
	defer cursor.Close(ctx)

	var out []OverrideRecord
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("cds: failed to decode overrides: %w", err)
	}
	return out, nil
}
