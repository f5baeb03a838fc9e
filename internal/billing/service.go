// Package billing bridges checkout and entitlement: it starts hosted
// Stripe checkout sessions and applies webhook events to the user's
// subscription status.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/appplaybook/backend/internal/users"
	"go.uber.org/zap"
)

// Plan enumerates the purchasable access plans.
type Plan string

const (
	// PlanLifetime is a one-time purchase granting permanent access.
	PlanLifetime Plan = "lifetime"
	// PlanMonthly is a recurring monthly subscription.
	PlanMonthly Plan = "monthly"
)

const (
	metadataUserIDKey    = "user_id"
	metadataPriceTypeKey = "price_type"

	productLifetimeName = "AppPlaybook Lifetime Access"
	productMonthlyName  = "AppPlaybook Monthly Subscription"
	productDescription  = "Access to 30+ app case studies"
)

var (
	// ErrUnknownPlan rejects a price type outside lifetime/monthly.
	ErrUnknownPlan = errors.New("billing: unknown plan")
	// ErrInvalidSignature marks a webhook whose signature did not verify.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")

	errMissingGateway   = errors.New("billing: payment gateway is required")
	errMissingUserStore = errors.New("billing: user store is required")
	errMissingSecret    = errors.New("billing: webhook secret is required")
	errMissingBaseURL   = errors.New("billing: app base url is required")
)

// ParsePlan validates a submitted priceType value.
func ParsePlan(value string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(value))) {
	case PlanLifetime:
		return PlanLifetime, nil
	case PlanMonthly:
		return PlanMonthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, value)
	}
}

// SubscriptionStatus maps the plan to the entitlement it grants.
func (p Plan) SubscriptionStatus() users.SubscriptionStatus {
	if p == PlanMonthly {
		return users.StatusPaidMonthly
	}
	return users.StatusPaidLifetime
}

// CheckoutSpec describes the hosted checkout session to create.
type CheckoutSpec struct {
	CustomerID         string
	Plan               Plan
	AmountCents        int64
	Currency           string
	ProductName        string
	ProductDescription string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}

// Gateway wraps the payment-provider API calls the service performs.
type Gateway interface {
	CreateCustomer(ctx context.Context, email, userID string) (customerID string, err error)
	CreateCheckoutSession(ctx context.Context, spec CheckoutSpec) (redirectURL string, err error)
}

// UserStore is the slice of the user service billing depends on.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
	SetStripeCustomer(ctx context.Context, userID, customerID string) error
	SetSubscriptionStatus(ctx context.Context, userID string, status users.SubscriptionStatus) error
	FindByStripeCustomer(ctx context.Context, customerID string) (*users.User, error)
}

// ServiceConfig bundles the billing service dependencies.
type ServiceConfig struct {
	Gateway            Gateway
	Users              UserStore
	WebhookSecret      string
	AppBaseURL         string
	LifetimePriceCents int64
	MonthlyPriceCents  int64
	Logger             *zap.Logger
}

// Service is the checkout/entitlement bridge.
type Service struct {
	gateway            Gateway
	users              UserStore
	webhookSecret      string
	appBaseURL         string
	lifetimePriceCents int64
	monthlyPriceCents  int64
	logger             *zap.Logger
}

// NewService constructs the billing service with validated configuration.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Gateway == nil {
		return nil, errMissingGateway
	}
	if cfg.Users == nil {
		return nil, errMissingUserStore
	}
	if strings.TrimSpace(cfg.WebhookSecret) == "" {
		return nil, errMissingSecret
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.AppBaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}

	lifetime := cfg.LifetimePriceCents
	if lifetime <= 0 {
		lifetime = 2000
	}
	monthly := cfg.MonthlyPriceCents
	if monthly <= 0 {
		monthly = 1400
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		gateway:            cfg.Gateway,
		users:              cfg.Users,
		webhookSecret:      cfg.WebhookSecret,
		appBaseURL:         baseURL,
		lifetimePriceCents: lifetime,
		monthlyPriceCents:  monthly,
		logger:             logger,
	}, nil
}

// StartCheckout lazily creates the payment-provider customer for the user,
// persists the mapping, and returns the hosted checkout redirect URL. The
// session metadata carries the canonical user id and plan for later
// webhook correlation.
func (s *Service) StartCheckout(ctx context.Context, userID string, plan Plan) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("billing: user lookup failed: %w", err)
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.gateway.CreateCustomer(ctx, user.Email, user.ID)
		if err != nil {
			s.logger.Error("customer creation failed", zap.String("user_id", user.ID), zap.Error(err))
			return "", fmt.Errorf("billing: customer creation failed: %w", err)
		}
		if err := s.users.SetStripeCustomer(ctx, user.ID, customerID); err != nil {
			return "", fmt.Errorf("billing: customer mapping failed: %w", err)
		}
	}

	spec := CheckoutSpec{
		CustomerID:         customerID,
		Plan:               plan,
		AmountCents:        s.lifetimePriceCents,
		Currency:           "usd",
		ProductName:        productLifetimeName,
		ProductDescription: productDescription,
		SuccessURL:         s.appBaseURL + "/payment/success",
		CancelURL:          s.appBaseURL + "/pricing",
		Metadata: map[string]string{
			metadataUserIDKey:    user.ID,
			metadataPriceTypeKey: string(plan),
		},
	}
	if plan == PlanMonthly {
		spec.AmountCents = s.monthlyPriceCents
		spec.ProductName = productMonthlyName
	}

	redirectURL, err := s.gateway.CreateCheckoutSession(ctx, spec)
	if err != nil {
		s.logger.Error("checkout session creation failed",
			zap.String("user_id", user.ID),
			zap.String("plan", string(plan)),
			zap.Error(err))
		return "", fmt.Errorf("billing: checkout session failed: %w", err)
	}
	return redirectURL, nil
}
