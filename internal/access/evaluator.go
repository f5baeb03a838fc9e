// Package access decides whether a visitor may see gated case-study
// content. The single policy is subscription-status based; admin rights
// gate the admin API surface but never grant content access.
package access

import (
	"context"

	"github.com/appplaybook/backend/internal/users"
	"go.uber.org/zap"
)

// UserLookup is the slice of the user service the evaluator needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Evaluator applies the entitlement policy.
type Evaluator struct {
	lookup UserLookup
	logger *zap.Logger
}

// EvaluatorConfig bundles the evaluator dependencies.
type EvaluatorConfig struct {
	Users  UserLookup
	Logger *zap.Logger
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{lookup: cfg.Users, logger: logger}
}

// Evaluate decides visibility from already-loaded state: free content is
// always visible, anonymous visitors see nothing gated, and otherwise the
// user's subscription status decides.
func Evaluate(contentIsFree bool, user *users.User) bool {
	if contentIsFree {
		return true
	}
	if user == nil {
		return false
	}
	return user.SubscriptionStatus.Paid()
}

// EvaluateForUser resolves the user record and applies Evaluate. An empty
// userID means an anonymous visitor. Lookup failures fail closed: the
// error is logged and the content stays locked, never the reverse.
func (e *Evaluator) EvaluateForUser(ctx context.Context, contentIsFree bool, userID string) bool {
	if contentIsFree {
		return true
	}
	if userID == "" || e.lookup == nil {
		return false
	}
	user, err := e.lookup.GetByID(ctx, userID)
	if err != nil {
		e.logger.Error("entitlement lookup failed, denying access",
			zap.String("user_id", userID),
			zap.Error(err))
		return false
	}
	return Evaluate(contentIsFree, user)
}
