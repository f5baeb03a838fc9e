package billing

import (
	"context"
	"errors"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

var errMissingSecretKey = errors.New("billing: stripe secret key is required")

// StripeGateway implements Gateway against the hosted Stripe API.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway constructs a gateway bound to the given secret key.
func NewStripeGateway(secretKey string) (*StripeGateway, error) {
	if strings.TrimSpace(secretKey) == "" {
		return nil, errMissingSecretKey
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}, nil
}

// CreateCustomer registers a customer record carrying the canonical user
// id in its metadata.
func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata(metadataUserIDKey, userID)

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateCheckoutSession creates a hosted checkout session (one-time
// payment for lifetime, recurring for monthly) and returns its URL.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, spec CheckoutSpec) (string, error) {
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(spec.Currency),
		UnitAmount: stripe.Int64(spec.AmountCents),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:        stripe.String(spec.ProductName),
			Description: stripe.String(spec.ProductDescription),
		},
	}

	mode := stripe.CheckoutSessionModePayment
	if spec.Plan == PlanMonthly {
		mode = stripe.CheckoutSessionModeSubscription
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(spec.CustomerID),
		Mode:               stripe.String(string(mode)),
		SuccessURL:         stripe.String(spec.SuccessURL),
		CancelURL:          stripe.String(spec.CancelURL),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: priceData,
				Quantity:  stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	for key, value := range spec.Metadata {
		params.AddMetadata(key, value)
	}

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}
