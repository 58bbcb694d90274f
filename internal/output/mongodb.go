// internal/output/mongodb.go
package output

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valpere/CommentHarvester/internal/records"
)

const mongoOpTimeout = 30 * time.Second

// MongoDBWriter upserts records into a MongoDB collection keyed by
// email.
type MongoDBWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoDBWriter connects to uri and targets database/collection.
func NewMongoDBWriter(uri, database, collection string) (*MongoDBWriter, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb connection string is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongodb database name is required")
	}
	if collection == "" {
		collection = "email_records"
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBWriter{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Write upserts all records, replacing any existing document with the
// same email.
func (w *MongoDBWriter) Write(recs []records.Record) error {
	if len(recs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		doc := bson.M{
			"email":           rec.Email,
			"author_name":     rec.AuthorName,
			"author_title":    rec.AuthorTitle,
			"profile_url":     rec.ProfileURL,
			"post_url":        rec.PostURL,
			"extracted_at":    rec.ExtractedAt,
			"comment_snippet": rec.CommentSnippet,
			"source_type":     string(rec.SourceType),
			"seen_count":      rec.SeenCount,
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"email": rec.Email}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	_, err := w.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to bulk upsert: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (w *MongoDBWriter) Close() error {
	if w.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := w.client.Disconnect(ctx)
		w.client = nil
		return err
	}
	return nil
}
