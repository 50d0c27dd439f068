package newsRepo

import (
	"context"
	"fmt"
	"time"

	"courtwise/database"
	"courtwise/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoNewsRepo implements NewsRepository on the "legal_news" collection.
type MongoNewsRepo struct {
	coll *mongo.Collection
}

func NewMongoNewsRepo(db *mongo.Database, logger *zap.Logger) NewsRepository {
	repo := &MongoNewsRepo{coll: db.Collection("legal_news")}

	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "link", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "published_at", Value: -1}}},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("legal_news: failed to create indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoNewsRepo) UpsertMany(ctx context.Context, items []models.LegalNews) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	ctx, cancel := database.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		set := bson.M{
			"title":      item.Title,
			"summary":    item.Summary,
			"source":     item.Source,
			"image_url":  item.ImageURL,
			"fetched_at": item.FetchedAt,
		}
		if item.PublishedAt != nil {
			set["published_at"] = *item.PublishedAt
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"link": item.Link}).
			SetUpdate(bson.M{"$set": set, "$setOnInsert": bson.M{"id": uuid.New().String()}}).
			SetUpsert(true))
	}

	result, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("failed to upsert news: %w", err)
	}
	return int(result.UpsertedCount), nil
}

func (r *MongoNewsRepo) ListLatest(ctx context.Context, limit int) ([]models.LegalNews, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "fetched_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.LegalNews{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode news: %w", err)
	}
	return items, nil
}
