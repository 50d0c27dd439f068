// Package identity wraps the external identity provider: password sign-in,
// account creation, sign-out and the per-session stream of identity changes.
package identity

import (
	"context"
	"errors"

	"courtwise/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNotLoggedIn        = errors.New("not signed in")
	ErrSessionExpired     = errors.New("identity session expired")
)

// Provider is the identity provider as seen by one client session key.
type Provider interface {
	// CurrentSession returns the stored identity session for key, or nil.
	CurrentSession(ctx context.Context, key string) (*models.IdentitySession, error)
	// Subscribe streams identity changes for key in the order they happen.
	// The returned func stops the stream and closes the channel.
	Subscribe(key string) (<-chan models.IdentityEvent, func())
	SignInWithPassword(ctx context.Context, key string, creds models.Credentials) (*models.IdentitySession, error)
	SignUp(ctx context.Context, key string, creds models.Credentials, meta models.SignUpMetadata) (*models.IdentitySession, error)
	SignOut(ctx context.Context, key string) error
	Refresh(ctx context.Context, key string) (*models.IdentitySession, error)
}

// Provisioner runs once for every new account, before its SIGNED_IN event is
// published. It creates the profile row for the identity.
type Provisioner func(ctx context.Context, identity models.Identity, meta models.SignUpMetadata) error
