package usageRepo

import (
	"context"

	"courtwise/models"
)

// UsageRepository stores per-day view counters for metered users.
type UsageRepository interface {
	// Get returns the record for (userID, date), or nil when none exists.
	Get(ctx context.Context, userID, date string) (*models.UsageRecord, error)
	Insert(ctx context.Context, record *models.UsageRecord) error
	UpdateCasesViewed(ctx context.Context, id string, casesViewed int) error
	// Increment adds one view to (userID, date) in a single upsert and returns the new count.
	Increment(ctx context.Context, userID, date string) (int, error)
}
