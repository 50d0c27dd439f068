package usageRepo

import (
	"context"
	"errors"
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

// MongoUsageRepo implements UsageRepository on the "user_usage" collection.
type MongoUsageRepo struct {
	coll *mongo.Collection
}

func NewMongoUsageRepo(db *mongo.Database, logger *zap.Logger) UsageRepository {
	repo := &MongoUsageRepo{coll: db.Collection("user_usage")}
	if err := repo.ensureIndexes(); err != nil {
		logger.Warn("user_usage: failed to create indexes", zap.Error(err))
	}
	return repo
}

// ensureIndexes enforces at most one record per (user, day).
func (r *MongoUsageRepo) ensureIndexes() error {
	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "usage_date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := r.coll.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("failed to create usage index: %w", err)
	}
	return nil
}

func (r *MongoUsageRepo) Get(ctx context.Context, userID, date string) (*models.UsageRecord, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var record models.UsageRecord
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID, "usage_date": date}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch usage for %s on %s: %w", userID, date, err)
	}
	return &record, nil
}

func (r *MongoUsageRepo) Insert(ctx context.Context, record *models.UsageRecord) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert usage for %s: %w", record.UserID, err)
	}
	return nil
}

func (r *MongoUsageRepo) UpdateCasesViewed(ctx context.Context, id string, casesViewed int) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"cases_viewed": casesViewed, "updated_at": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update usage %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}

func (r *MongoUsageRepo) Increment(ctx context.Context, userID, date string) (int, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{"user_id": userID, "usage_date": date}
	update := bson.M{
		"$inc":         bson.M{"cases_viewed": 1},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"id": uuid.New().String(), "created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var record models.UsageRecord
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record); err != nil {
		return 0, fmt.Errorf("failed to increment usage for %s on %s: %w", userID, date, err)
	}
	return record.CasesViewed, nil
}
