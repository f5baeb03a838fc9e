package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/appplaybook/backend/internal/auth"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrInvalidIdentity indicates provider claims without a usable subject.
	ErrInvalidIdentity = errors.New("users: invalid identity")
	// ErrNotFound indicates the requested user record does not exist.
	ErrNotFound = errors.New("users: user not found")
	// ErrUnavailable indicates the user store is not configured.
	ErrUnavailable = errors.New("users: datastore not configured")
	// ErrInvalidStatus indicates an unknown subscription status value.
	ErrInvalidStatus = errors.New("users: invalid subscription status")
)

// ServiceConfig describes the dependencies required for user management.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service manages the local user records keyed by the provider subject.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the user service. A nil database is tolerated so
// unconfigured deployments boot; every lookup then fails closed.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     cfg.Database,
		logger: logger,
	}
}

// Resolve returns the local user for the verified provider claims,
// creating the record with the free tier on first sight. The email on the
// claims refreshes the denormalized copy but is never used as a key.
func (s *Service) Resolve(ctx context.Context, claims auth.ProviderClaims) (*User, error) {
	subject := normalize(claims.Subject)
	if subject == "" {
		return nil, ErrInvalidIdentity
	}
	if s.db == nil {
		return nil, ErrUnavailable
	}

	var user User
	err := s.db.WithContext(ctx).Where("id = ?", subject).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = User{
			ID:                 subject,
			Email:              normalize(claims.Email),
			SubscriptionStatus: StatusFree,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, fmt.Errorf("users: create failed: %w", err)
		}
		return &user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: lookup failed: %w", err)
	}

	if email := normalize(claims.Email); email != "" && email != user.Email {
		if err := s.db.WithContext(ctx).Model(&User{}).
			Where("id = ?", subject).
			Update("email", email).Error; err != nil {
			s.logger.Warn("user email refresh failed", zap.String("user_id", subject), zap.Error(err))
		} else {
			user.Email = email
		}
	}
	return &user, nil
}

// GetByID returns the user with the given canonical identifier.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: lookup failed: %w", err)
	}
	return &user, nil
}

// FindByStripeCustomer returns the user holding the given Stripe customer
// id, used for webhook correlation on subscription cancellation.
func (s *Service) FindByStripeCustomer(ctx context.Context, customerID string) (*User, error) {
	if s.db == nil {
		return nil, ErrUnavailable
	}
	if normalize(customerID) == "" {
		return nil, ErrNotFound
	}
	var user User
	err := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customerID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("users: lookup failed: %w", err)
	}
	return &user, nil
}

// SetStripeCustomer persists the lazily created payment-provider customer
// mapping for the user.
func (s *Service) SetStripeCustomer(ctx context.Context, userID, customerID string) error {
	if s.db == nil {
		return ErrUnavailable
	}
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("stripe_customer_id", customerID)
	if result.Error != nil {
		return fmt.Errorf("users: customer update failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdmin grants or revokes the admin flag. The flag gates the admin API
// only; content access stays a pure function of subscription status.
func (s *Service) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	if s.db == nil {
		return ErrUnavailable
	}
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return fmt.Errorf("users: admin update failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSubscriptionStatus updates the user's entitlement tier. Re-applying
// the current status is a no-op, which keeps webhook redelivery harmless.
func (s *Service) SetSubscriptionStatus(ctx context.Context, userID string, status SubscriptionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if s.db == nil {
		return ErrUnavailable
	}
	result := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Update("subscription_status", status)
	if result.Error != nil {
		return fmt.Errorf("users: status update failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
