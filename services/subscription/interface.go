package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtwise/models"

	"go.uber.org/zap"
)

var ErrNoEmail = errors.New("identity has no email address")

// SubscriptionService exposes the payment provider to signed-in identities.
type SubscriptionService interface {
	Checkout(ctx context.Context, session *models.IdentitySession) (string, error)
	Portal(ctx context.Context, session *models.IdentitySession) (string, error)
	Check(ctx context.Context, session *models.IdentitySession) (*models.SubscriptionStatus, error)
	Plans() []models.Plan
}

// Gateway is the payment provider.
type Gateway interface {
	// FindCustomer returns "" when no customer has the email.
	FindCustomer(ctx context.Context, email string) (string, error)
	CreateCustomer(ctx context.Context, email string) (string, error)
	CheckoutURL(ctx context.Context, customerID string) (string, error)
	PortalURL(ctx context.Context, customerID string) (string, error)
	// ActiveSubscriptionEnd returns the end of the current period of the
	// customer's active subscription, or nil when there is none.
	ActiveSubscriptionEnd(ctx context.Context, customerID string) (*time.Time, error)
}

// TokenVerifier resolves an identity provider access token to its identity.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (*models.Identity, error)
}

// DefaultSubscriptionService is the production implementation.
type DefaultSubscriptionService struct {
	Gateway        Gateway
	Verifier       TokenVerifier
	DailyAllowance int
	Logger         *zap.Logger
}

func NewSubscriptionService(gateway Gateway, verifier TokenVerifier, dailyAllowance int, logger *zap.Logger) *DefaultSubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultSubscriptionService{
		Gateway:        gateway,
		Verifier:       verifier,
		DailyAllowance: dailyAllowance,
		Logger:         logger,
	}
}

// Checkout returns a hosted checkout page for the configured price.
func (s *DefaultSubscriptionService) Checkout(ctx context.Context, session *models.IdentitySession) (string, error) {
	email, err := s.email(ctx, session)
	if err != nil {
		return "", err
	}
	customerID, err := s.Gateway.FindCustomer(ctx, email)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		if customerID, err = s.Gateway.CreateCustomer(ctx, email); err != nil {
			return "", err
		}
		s.Logger.Info("Created payment customer", zap.String("customerID", customerID))
	}
	return s.Gateway.CheckoutURL(ctx, customerID)
}

// Portal returns the billing portal of an existing customer.
func (s *DefaultSubscriptionService) Portal(ctx context.Context, session *models.IdentitySession) (string, error) {
	email, err := s.email(ctx, session)
	if err != nil {
		return "", err
	}
	customerID, err := s.Gateway.FindCustomer(ctx, email)
	if err != nil {
		return "", err
	}
	if customerID == "" {
		return "", fmt.Errorf("no payment customer for this account")
	}
	return s.Gateway.PortalURL(ctx, customerID)
}

// Check reports the entitlement the identity's payment status grants.
func (s *DefaultSubscriptionService) Check(ctx context.Context, session *models.IdentitySession) (*models.SubscriptionStatus, error) {
	free := &models.SubscriptionStatus{Subscribed: false, Role: models.RoleFree}

	email, err := s.email(ctx, session)
	if err != nil {
		return nil, err
	}
	customerID, err := s.Gateway.FindCustomer(ctx, email)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return free, nil
	}

	end, err := s.Gateway.ActiveSubscriptionEnd(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return free, nil
	}
	return &models.SubscriptionStatus{Subscribed: true, Role: models.RoleSubscriber, SubscriptionEnd: end}, nil
}

// Plans lists the tiers shown on the pricing page. The free tier is always
// described from the configured allowance.
func (s *DefaultSubscriptionService) Plans() []models.Plan {
	noun := "cases"
	if s.DailyAllowance == 1 {
		noun = "case"
	}
	return []models.Plan{
		{
			ID:          string(models.RoleFree),
			Name:        "Free",
			Description: fmt.Sprintf("%d %s per day", s.DailyAllowance, noun),
			DailyCases:  s.DailyAllowance,
		},
		{
			ID:          string(models.RoleSubscriber),
			Name:        "Professional",
			Description: "Unlimited case access, downloads and notes",
			DailyCases:  -1,
		},
	}
}

// email resolves the identity's email, verifying the access token when a
// verifier is configured.
func (s *DefaultSubscriptionService) email(ctx context.Context, session *models.IdentitySession) (string, error) {
	if session == nil {
		return "", ErrNoEmail
	}
	identity := session.Identity
	if s.Verifier != nil {
		verified, err := s.Verifier.VerifyAccessToken(ctx, session.AccessToken)
		if err != nil {
			return "", err
		}
		identity = *verified
	}
	if identity.Email == "" {
		return "", ErrNoEmail
	}
	return identity.Email, nil
}
