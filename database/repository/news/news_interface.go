package newsRepo

import (
	"context"

	"courtwise/models"
)

// NewsRepository persists aggregated legal news keyed by link.
type NewsRepository interface {
	// UpsertMany stores items, returning how many were new.
	UpsertMany(ctx context.Context, items []models.LegalNews) (int, error)
	ListLatest(ctx context.Context, limit int) ([]models.LegalNews, error)
}
