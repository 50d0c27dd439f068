package identity

import (
	"context"
	"errors"
	"testing"

	"courtwise/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProfiles struct {
	CreateFn func(ctx context.Context, profile *models.Profile) error
}

func (m *mockProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return nil, nil
}

func (m *mockProfiles) Create(ctx context.Context, profile *models.Profile) error {
	return m.CreateFn(ctx, profile)
}

func (m *mockProfiles) Update(ctx context.Context, id string, update models.ProfileUpdate) (*models.Profile, error) {
	return nil, nil
}

func (m *mockProfiles) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return nil
}

func TestProfileProvisioner(t *testing.T) {
	var created *models.Profile
	repo := &mockProfiles{CreateFn: func(ctx context.Context, profile *models.Profile) error {
		created = profile
		return nil
	}}

	err := ProfileProvisioner(repo)(context.Background(),
		models.Identity{ID: "uid-1", Email: "a@example.com"},
		models.SignUpMetadata{FullName: "  Asha Rao ", Username: "asha", Role: models.RoleFree},
	)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "uid-1", created.ID)
	assert.Equal(t, "Asha Rao", created.FullName)
	assert.Equal(t, "asha", created.Username)
	assert.Equal(t, models.RoleFree, created.Role)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestProfileProvisioner_PropagatesError(t *testing.T) {
	repo := &mockProfiles{CreateFn: func(ctx context.Context, profile *models.Profile) error {
		return errors.New("mongo down")
	}}
	err := ProfileProvisioner(repo)(context.Background(), models.Identity{ID: "uid-1"}, models.SignUpMetadata{})
	assert.Error(t, err)
}
