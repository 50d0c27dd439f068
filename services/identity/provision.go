package identity

import (
	"context"
	"strings"
	"time"

	profileRepo "courtwise/database/repository/profile"
	"courtwise/models"
)

// ProfileProvisioner seeds the profile row of a new account from its signup
// metadata. Existing rows are left untouched.
func ProfileProvisioner(profiles profileRepo.ProfileRepository) Provisioner {
	return func(ctx context.Context, identity models.Identity, meta models.SignUpMetadata) error {
		now := time.Now().UTC()
		return profiles.Create(ctx, &models.Profile{
			ID:        identity.ID,
			FullName:  strings.TrimSpace(meta.FullName),
			Username:  strings.TrimSpace(meta.Username),
			Role:      models.ParseRole(string(meta.Role)),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
}
