package profileRepo

import (
	"context"

	"courtwise/models"
)

// ProfileRepository defines methods for profile data access.
type ProfileRepository interface {
	// GetByID returns the profile for an identity, or nil when none exists.
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	// Create inserts a profile unless one already exists for the id.
	Create(ctx context.Context, profile *models.Profile) error
	// Update applies the edit-form fields and returns the stored profile.
	Update(ctx context.Context, id string, update models.ProfileUpdate) (*models.Profile, error)
	// UpdateRole overwrites the entitlement role.
	UpdateRole(ctx context.Context, id string, role models.Role) error
}
