package users

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/appplaybook/backend/internal/auth"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	databasePath := filepath.Join(t.TempDir(), "users.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return NewService(ServiceConfig{Database: db})
}

func TestResolveCreatesUserOnFirstSight(t *testing.T) {
	service := newTestService(t)

	user, err := service.Resolve(context.Background(), auth.ProviderClaims{
		Subject: "provider-user-1",
		Email:   "reader@example.com",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if user.ID != "provider-user-1" {
		t.Fatalf("expected subject as canonical id, got %q", user.ID)
	}
	if user.Email != "reader@example.com" {
		t.Fatalf("unexpected email %q", user.Email)
	}
	if user.SubscriptionStatus != StatusFree {
		t.Fatalf("expected new users on free tier, got %q", user.SubscriptionStatus)
	}
	if user.IsAdmin {
		t.Fatalf("expected new users without admin rights")
	}
}

func TestResolveKeysBySubjectNotEmail(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first, err := service.Resolve(ctx, auth.ProviderClaims{Subject: "provider-user-1", Email: "old@example.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := service.SetSubscriptionStatus(ctx, first.ID, StatusPaidLifetime); err != nil {
		t.Fatalf("status update failed: %v", err)
	}

	// Same subject with a changed provider email is the same user; the
	// email copy refreshes but the entitlement survives.
	second, err := service.Resolve(ctx, auth.ProviderClaims{Subject: "provider-user-1", Email: "new@example.com"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %q and %q", first.ID, second.ID)
	}
	if second.Email != "new@example.com" {
		t.Fatalf("expected refreshed email, got %q", second.Email)
	}
	if second.SubscriptionStatus != StatusPaidLifetime {
		t.Fatalf("expected entitlement to survive email change, got %q", second.SubscriptionStatus)
	}
}

func TestResolveRejectsMissingSubject(t *testing.T) {
	service := newTestService(t)

	if _, err := service.Resolve(context.Background(), auth.ProviderClaims{Email: "reader@example.com"}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
}

func TestSetSubscriptionStatusValidatesTier(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Resolve(ctx, auth.ProviderClaims{Subject: "provider-user-1"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if err := service.SetSubscriptionStatus(ctx, user.ID, "platinum"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := service.SetSubscriptionStatus(ctx, "missing", StatusPaidMonthly); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := service.SetSubscriptionStatus(ctx, user.ID, StatusPaidMonthly); err != nil {
		t.Fatalf("status update failed: %v", err)
	}
	// Redelivered webhooks reapply the same status.
	if err := service.SetSubscriptionStatus(ctx, user.ID, StatusPaidMonthly); err != nil {
		t.Fatalf("repeat status update failed: %v", err)
	}

	stored, err := service.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if stored.SubscriptionStatus != StatusPaidMonthly {
		t.Fatalf("unexpected status %q", stored.SubscriptionStatus)
	}
}

func TestSetAdminGrantsAndRevokes(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Resolve(ctx, auth.ProviderClaims{Subject: "provider-user-1"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if err := service.SetAdmin(ctx, user.ID, true); err != nil {
		t.Fatalf("admin grant failed: %v", err)
	}
	stored, err := service.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !stored.IsAdmin {
		t.Fatalf("expected admin flag set")
	}

	if err := service.SetAdmin(ctx, user.ID, false); err != nil {
		t.Fatalf("admin revoke failed: %v", err)
	}
	if err := service.SetAdmin(ctx, "missing", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByStripeCustomer(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	user, err := service.Resolve(ctx, auth.ProviderClaims{Subject: "provider-user-1"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := service.SetStripeCustomer(ctx, user.ID, "cus_123"); err != nil {
		t.Fatalf("customer mapping failed: %v", err)
	}

	found, err := service.FindByStripeCustomer(ctx, "cus_123")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("unexpected user %q", found.ID)
	}

	if _, err := service.FindByStripeCustomer(ctx, "cus_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := service.FindByStripeCustomer(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank customer, got %v", err)
	}
}

func TestNilDatabaseFailsClosed(t *testing.T) {
	service := NewService(ServiceConfig{})

	if _, err := service.Resolve(context.Background(), auth.ProviderClaims{Subject: "provider-user-1"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := service.GetByID(context.Background(), "provider-user-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
