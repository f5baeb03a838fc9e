package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/appplaybook/backend/internal/users"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionDeleted = "customer.subscription.deleted"
)

// checkoutSessionEvent carries the slice of a completed checkout session
// the handler reads. Decoding locally keeps the handler independent of the
// provider SDK's full object model.
type checkoutSessionEvent struct {
	Metadata map[string]string `json:"metadata"`
}

// subscriptionEvent carries the customer reference of a cancelled
// subscription; webhook payloads deliver it as the bare customer id.
type subscriptionEvent struct {
	Customer string `json:"customer"`
}

// HandleWebhook verifies the provider signature and applies the event to
// the user's entitlement. Signature failures reject the request without
// touching the payload. Unrecognized event types are acknowledged and
// ignored so the provider does not retry them. Redelivery of a handled
// event reapplies the same status, which is a no-op.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := webhook.ConstructEvent(payload, signatureHeader, s.webhookSecret)
	if err != nil {
		s.logger.Warn("webhook signature verification failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch string(event.Type) {
	case eventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, event.Data.Raw)
	case eventSubscriptionDeleted:
		return s.applySubscriptionDeleted(ctx, event.Data.Raw)
	default:
		s.logger.Debug("ignoring webhook event", zap.String("event_type", string(event.Type)))
		return nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, raw json.RawMessage) error {
	var session checkoutSessionEvent
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("billing: malformed checkout session payload: %w", err)
	}

	userID := session.Metadata[metadataUserIDKey]
	if userID == "" {
		return fmt.Errorf("billing: checkout session missing %s metadata", metadataUserIDKey)
	}

	status := users.StatusPaidLifetime
	if session.Metadata[metadataPriceTypeKey] == string(PlanMonthly) {
		status = users.StatusPaidMonthly
	}

	if err := s.users.SetSubscriptionStatus(ctx, userID, status); err != nil {
		return fmt.Errorf("billing: entitlement update failed: %w", err)
	}
	s.logger.Info("entitlement granted",
		zap.String("user_id", userID),
		zap.String("subscription_status", string(status)))
	return nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, raw json.RawMessage) error {
	var subscription subscriptionEvent
	if err := json.Unmarshal(raw, &subscription); err != nil {
		return fmt.Errorf("billing: malformed subscription payload: %w", err)
	}

	user, err := s.users.FindByStripeCustomer(ctx, subscription.Customer)
	if errors.Is(err, users.ErrNotFound) {
		// The customer may predate this deployment; nothing to reset.
		s.logger.Warn("subscription cancellation for unknown customer",
			zap.String("customer_id", subscription.Customer))
		return nil
	}
	if err != nil {
		return fmt.Errorf("billing: customer lookup failed: %w", err)
	}

	if err := s.users.SetSubscriptionStatus(ctx, user.ID, users.StatusFree); err != nil {
		return fmt.Errorf("billing: entitlement reset failed: %w", err)
	}
	s.logger.Info("entitlement reset", zap.String("user_id", user.ID))
	return nil
}
