package models

import "time"

// Identity is the identity provider's user record. Read-only to this service.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentitySession is an authenticated identity plus the provider's tokens.
type IdentitySession struct {
	Identity     Identity  `json:"identity"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IdentityEventKind names a transition reported by the identity provider.
type IdentityEventKind string

const (
	IdentityInitialSession IdentityEventKind = "INITIAL_SESSION"
	IdentitySignedIn       IdentityEventKind = "SIGNED_IN"
	IdentitySignedOut      IdentityEventKind = "SIGNED_OUT"
	IdentityTokenRefreshed IdentityEventKind = "TOKEN_REFRESHED"
)

// IdentityEvent is delivered to subscribers on every transition. Session is nil on sign-out.
type IdentityEvent struct {
	Kind    IdentityEventKind
	Session *IdentitySession
	At      time.Time
}

// Credentials are the email/password pair used by login and signup.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// SignUpMetadata is attached to a new account and seeds its profile.
type SignUpMetadata struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
