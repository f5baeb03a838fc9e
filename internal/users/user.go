package users

import (
	"strings"
	"time"
)

// SubscriptionStatus enumerates the entitlement tiers a user can hold.
type SubscriptionStatus string

const (
	// StatusFree is the default tier with no paid entitlement.
	StatusFree SubscriptionStatus = "free"
	// StatusPaidLifetime is granted by a completed one-time purchase.
	StatusPaidLifetime SubscriptionStatus = "paid_lifetime"
	// StatusPaidMonthly is granted by an active monthly subscription.
	StatusPaidMonthly SubscriptionStatus = "paid_monthly"
)

// Paid reports whether the status grants access to gated content.
func (s SubscriptionStatus) Paid() bool {
	return s == StatusPaidLifetime || s == StatusPaidMonthly
}

// Valid reports whether the value is one of the known tiers.
func (s SubscriptionStatus) Valid() bool {
	return s == StatusFree || s == StatusPaidLifetime || s == StatusPaidMonthly
}

// User is the local record for an identity issued by the hosted auth
// provider. ID is the provider subject and the single canonical key for
// every lookup; Email is denormalized display data only.
type User struct {
	ID                 string             `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Email              string             `gorm:"column:email;size:320;not null;index" json:"email"`
	SubscriptionStatus SubscriptionStatus `gorm:"column:subscription_status;size:32;not null;default:free" json:"subscription_status"`
	StripeCustomerID   string             `gorm:"column:stripe_customer_id;size:190;index" json:"stripe_customer_id,omitempty"`
	IsAdmin            bool               `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}
