package casesRepo

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

// MongoNoteRepo implements NoteRepository on the "case_notes" collection.
type MongoNoteRepo struct {
	coll *mongo.Collection
}

func NewMongoNoteRepo(db *mongo.Database, logger *zap.Logger) NoteRepository {
	repo := &MongoNoteRepo{coll: db.Collection("case_notes")}

	ctx, cancel := database.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	model := mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "case_id", Value: 1}}}
	if _, err := repo.coll.Indexes().CreateOne(ctx, model); err != nil {
		logger.Warn("case_notes: failed to create index", zap.Error(err))
	}
	return repo
}

func (r *MongoNoteRepo) ListByCase(ctx context.Context, userID, caseID string) ([]models.CaseNote, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID, "case_id": caseID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer cursor.Close(ctx)

	notes := []models.CaseNote{}
	if err := cursor.All(ctx, &notes); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}
	return notes, nil
}

func (r *MongoNoteRepo) Create(ctx context.Context, note *models.CaseNote) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	note.ID = uuid.New().String()
	note.CreatedAt = now
	note.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, note); err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

func (r *MongoNoteRepo) Update(ctx context.Context, userID, noteID, content string) (*models.CaseNote, error) {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": noteID, "user_id": userID}
	update := bson.M{"$set": bson.M{"content": content, "updated_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var note models.CaseNote
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&note); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update note %s: %w", noteID, err)
	}
	return &note, nil
}

func (r *MongoNoteRepo) Delete(ctx context.Context, userID, noteID string) error {
	ctx, cancel := database.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": noteID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", noteID, err)
	}
	if result.DeletedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}
