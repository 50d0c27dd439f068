package casesRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtwise/database"
	"courtwise/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoCaseRepo implements CaseRepository on the "cases" collection.
type MongoCaseRepo struct {
	coll *mongo.Collection
}

func NewMongoCaseRepo(db *mongo.Database, logger *zap.Logger) CaseRepository {
	repo := &MongoCaseRepo{coll: db.Collection("cases")}

	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "court", Value: 1}, {Key: "year", Value: -1}}},
	}
	if _, err := repo.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("cases: failed to create indexes", zap.Error(err))
	}
	return repo
}

// List returns the whole catalogue, newest first.
func (r *MongoCaseRepo) List(ctx context.Context) ([]models.Case, error) {
	ctx, cancel := database.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "year", Value: -1}, {Key: "title", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer cursor.Close(ctx)

	cases := []models.Case{}
	if err := cursor.All(ctx, &cases); err != nil {
		return nil, fmt.Errorf("failed to decode cases: %w", err)
	}
	return cases, nil
}

func (r *MongoCaseRepo) GetByID(ctx context.Context, id string) (*models.Case, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c models.Case
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch case %s: %w", id, err)
	}
	return &c, nil
}

func (r *MongoCaseRepo) Upsert(ctx context.Context, cases []models.Case) error {
	if len(cases) == 0 {
		return nil
	}
	ctx, cancel := database.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	writes := make([]mongo.WriteModel, 0, len(cases))
	for _, c := range cases {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"id": c.ID}).
			SetReplacement(c).
			SetUpsert(true))
	}
	if _, err := r.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert cases: %w", err)
	}
	return nil
}
