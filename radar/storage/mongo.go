// Package storage archives run output and job state in MongoDB. The
// spreadsheet remains the operator-facing output; the archive exists so
// service mode can answer job-status queries and keep raw results queryable.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"productradar/models"
)

type MongoStorage struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStorage(uri, dbName string) (*MongoStorage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	return &MongoStorage{client: client, db: db}, nil
}

func (s *MongoStorage) Close() {
	_ = s.client.Disconnect(context.Background())
}

// SaveResult archives one product's extracted records, keyed by product URL
// and day so a rerun replaces the same day's entry instead of duplicating it.
func (s *MongoStorage) SaveResult(ctx context.Context, result *models.ProductResult) error {
	coll := s.db.Collection("results")
	day := time.Now().UTC().Format("2006-01-02")

	filter := bson.M{
		"product.url": result.Product.URL,
		"day":         day,
	}
	doc := bson.M{
		"product": result.Product,
		"videos":  result.Videos,
		"row":     result.Row,
		"day":     day,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert result for %s: %v", result.Product.URL, err)
	}
	return nil
}

func (s *MongoStorage) SaveJob(ctx context.Context, job *models.ScrapeJob) error {
	coll := s.db.Collection("jobs")
	opts := options.Replace().SetUpsert(true)
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": job.ID}, job, opts)
	return err
}

func (s *MongoStorage) UpdateJobStatus(ctx context.Context, id, status, errMsg string) error {
	coll := s.db.Collection("jobs")
	update := bson.M{"$set": bson.M{
		"status":     status,
		"error":      errMsg,
		"updated_at": time.Now().UTC(),
	}}
	_, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *MongoStorage) GetJob(ctx context.Context, id string) (*models.ScrapeJob, error) {
	coll := s.db.Collection("jobs")
	var job models.ScrapeJob
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListResults returns the most recent archived results, newest first.
func (s *MongoStorage) ListResults(ctx context.Context, limit int64) ([]models.ProductResult, error) {
	coll := s.db.Collection("results")
	opts := options.Find().
		SetSort(bson.D{{Key: "product.scraped_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %v", err)
	}
	defer cursor.Close(ctx)

	var results []models.ProductResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results: %v", err)
	}
	return results, nil
}
