package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"courtwise/config"
	"courtwise/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// AdminClient is the part of the Firebase Admin auth client the provider uses.
type AdminClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// NewFirebaseAuthClient builds the Admin auth client from a service account file.
func NewFirebaseAuthClient(ctx context.Context, credentialsFile string) (*auth.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Auth client: %w", err)
	}
	return client, nil
}

// FirebaseProvider implements Provider on Firebase Authentication.
type FirebaseProvider struct {
	admin     AdminClient
	rest      *restClient
	store     SessionStore
	bus       *Bus
	provision Provisioner
	now       func() time.Time
	logger    *zap.Logger
}

// FirebaseOption customizes a FirebaseProvider.
type FirebaseOption func(*FirebaseProvider)

// WithProvisioner installs the hook that seeds new accounts.
func WithProvisioner(p Provisioner) FirebaseOption {
	return func(f *FirebaseProvider) { f.provision = p }
}

// WithEndpoints overrides the REST endpoints, mainly for the emulator and tests.
func WithEndpoints(signInURL, refreshURL string) FirebaseOption {
	return func(f *FirebaseProvider) {
		f.rest.signInURL = signInURL
		f.rest.refreshURL = refreshURL
	}
}

func WithHTTPClient(client *http.Client) FirebaseOption {
	return func(f *FirebaseProvider) { f.rest.http = client }
}

func WithProviderClock(now func() time.Time) FirebaseOption {
	return func(f *FirebaseProvider) { f.now = now }
}

func NewFirebaseProvider(admin AdminClient, apiKey string, store SessionStore, bus *Bus, logger *zap.Logger, opts ...FirebaseOption) *FirebaseProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &FirebaseProvider{
		admin: admin,
		rest: &restClient{
			http:       &http.Client{Timeout: 10 * time.Second},
			apiKey:     apiKey,
			signInURL:  config.FirebaseSignInURL,
			refreshURL: config.FirebaseRefreshURL,
		},
		store:  store,
		bus:    bus,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CurrentSession returns the stored session for key, refreshing it first
// when its access token has expired. A session that cannot be refreshed is dropped.
func (f *FirebaseProvider) CurrentSession(ctx context.Context, key string) (*models.IdentitySession, error) {
	session, err := f.store.Load(ctx, key)
	if err != nil || session == nil {
		return nil, err
	}
	if f.now().Before(session.ExpiresAt) {
		return session, nil
	}

	refreshed, err := f.Refresh(ctx, key)
	if err != nil {
		f.logger.Info("Dropping identity session that could not be refreshed", zap.Error(err))
		if errors.Is(err, ErrSessionExpired) {
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

func (f *FirebaseProvider) Subscribe(key string) (<-chan models.IdentityEvent, func()) {
	return f.bus.Subscribe(key)
}

func (f *FirebaseProvider) SignInWithPassword(ctx context.Context, key string, creds models.Credentials) (*models.IdentitySession, error) {
	session, err := f.passwordSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := f.store.Save(ctx, key, session); err != nil {
		return nil, err
	}
	f.publish(key, models.IdentitySignedIn, session)
	return session, nil
}

// SignUp creates the account, provisions it and signs it in. Accounts always
// start on the free role; privileged roles are only granted later.
func (f *FirebaseProvider) SignUp(ctx context.Context, key string, creds models.Credentials, meta models.SignUpMetadata) (*models.IdentitySession, error) {
	params := (&auth.UserToCreate{}).Email(creds.Email).Password(creds.Password)
	if meta.FullName != "" {
		params = params.DisplayName(meta.FullName)
	}
	record, err := f.admin.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	meta.Role = models.RoleFree
	identity := identityFromRecord(record)
	if f.provision != nil {
		if err := f.provision(ctx, identity, meta); err != nil {
			f.logger.Error("Failed to provision new account", zap.String("userID", identity.ID), zap.Error(err))
		}
	}

	session, err := f.passwordSession(ctx, creds)
	if err != nil {
		return nil, err
	}
	session.Identity.CreatedAt = identity.CreatedAt
	if err := f.store.Save(ctx, key, session); err != nil {
		return nil, err
	}
	f.publish(key, models.IdentitySignedIn, session)
	return session, nil
}

// SignOut revokes the identity's refresh tokens and forgets the session.
func (f *FirebaseProvider) SignOut(ctx context.Context, key string) error {
	session, err := f.store.Load(ctx, key)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNotLoggedIn
	}
	if err := f.admin.RevokeRefreshTokens(ctx, session.Identity.ID); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	if err := f.store.Delete(ctx, key); err != nil {
		return err
	}
	f.publish(key, models.IdentitySignedOut, nil)
	return nil
}

// Refresh exchanges the stored refresh token for a new access token.
func (f *FirebaseProvider) Refresh(ctx context.Context, key string) (*models.IdentitySession, error) {
	session, err := f.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotLoggedIn
	}

	tr, err := f.rest.refresh(ctx, session.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			if delErr := f.store.Delete(ctx, key); delErr != nil {
				f.logger.Warn("Failed to delete expired identity session", zap.Error(delErr))
			}
			f.publish(key, models.IdentitySignedOut, nil)
		}
		return nil, err
	}

	session.AccessToken = tr.idToken()
	if rt := tr.refreshToken(); rt != "" {
		session.RefreshToken = rt
	}
	session.ExpiresAt = tr.expiresAt(f.now())
	if err := f.store.Save(ctx, key, session); err != nil {
		return nil, err
	}
	f.publish(key, models.IdentityTokenRefreshed, session)
	return session, nil
}

// VerifyAccessToken checks an ID token and returns the identity it belongs to.
func (f *FirebaseProvider) VerifyAccessToken(ctx context.Context, accessToken string) (*models.Identity, error) {
	token, err := f.admin.VerifyIDToken(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	record, err := f.admin.GetUser(ctx, token.UID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity %s: %w", token.UID, err)
	}
	identity := identityFromRecord(record)
	return &identity, nil
}

func (f *FirebaseProvider) passwordSession(ctx context.Context, creds models.Credentials) (*models.IdentitySession, error) {
	tr, err := f.rest.signInWithPassword(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	identity := models.Identity{ID: tr.uid(), Email: firstNonEmpty(tr.Email, creds.Email)}
	if record, err := f.admin.GetUser(ctx, identity.ID); err == nil {
		identity = identityFromRecord(record)
	} else {
		f.logger.Debug("Could not load identity record", zap.String("userID", identity.ID), zap.Error(err))
	}
	return &models.IdentitySession{
		Identity:     identity,
		AccessToken:  tr.idToken(),
		RefreshToken: tr.refreshToken(),
		ExpiresAt:    tr.expiresAt(f.now()),
	}, nil
}

func (f *FirebaseProvider) publish(key string, kind models.IdentityEventKind, session *models.IdentitySession) {
	var copied *models.IdentitySession
	if session != nil {
		s := *session
		copied = &s
	}
	f.bus.Publish(key, models.IdentityEvent{Kind: kind, Session: copied, At: f.now()})
}

func identityFromRecord(record *auth.UserRecord) models.Identity {
	var identity models.Identity
	if record.UserInfo != nil {
		identity.ID = record.UserInfo.UID
		identity.Email = record.UserInfo.Email
	}
	if record.UserMetadata != nil && record.UserMetadata.CreationTimestamp > 0 {
		identity.CreatedAt = time.UnixMilli(record.UserMetadata.CreationTimestamp).UTC()
	}
	return identity
}
