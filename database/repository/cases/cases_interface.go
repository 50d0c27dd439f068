package casesRepo

import (
	"context"

	"courtwise/models"
)

// CaseRepository reads the case catalogue.
type CaseRepository interface {
	List(ctx context.Context) ([]models.Case, error)
	// GetByID returns nil when no case has the id.
	GetByID(ctx context.Context, id string) (*models.Case, error)
	// Upsert writes catalogue entries keyed by id.
	Upsert(ctx context.Context, cases []models.Case) error
}

// NoteRepository stores private case notes. Every call is scoped to the owner.
type NoteRepository interface {
	ListByCase(ctx context.Context, userID, caseID string) ([]models.CaseNote, error)
	Create(ctx context.Context, note *models.CaseNote) error
	Update(ctx context.Context, userID, noteID, content string) (*models.CaseNote, error)
	Delete(ctx context.Context, userID, noteID string) error
}
