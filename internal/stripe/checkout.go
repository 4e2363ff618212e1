package stripe

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
)

// Client creates Checkout sessions against the platform account.
type Client struct {
	client *stripe.Client
}

func NewClient(secretKey string) *Client {
	return &Client{
		client: stripe.NewClient(secretKey),
	}
}

// CheckoutSessionParams holds parameters for creating a checkout session.
// The order id travels in session metadata; the payment webhook reads it back
// to correlate the completed session with the order.
type CheckoutSessionParams struct {
	OrderID       uuid.UUID
	CustomerEmail string
	Currency      string
	Items         []CheckoutLineItem
	SuccessURL    string
	CancelURL     string
}

type CheckoutLineItem struct {
	Title          string
	UnitPriceCents int64
	Quantity       int64
}

// CreateCheckoutSession creates a checkout session for an order.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if len(params.Items) == 0 {
		return nil, fmt.Errorf("at least one line item is required")
	}

	lineItems := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(params.Items))
	for _, item := range params.Items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency: stripe.String(params.Currency),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Title),
				},
				UnitAmount: stripe.Int64(item.UnitPriceCents),
			},
			Quantity: stripe.Int64(quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionCreateParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		LineItems:          lineItems,
		ShippingAddressCollection: &stripe.CheckoutSessionCreateShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US"}),
		},
		// Customer email is optional. Only send if present to avoid Stripe validation errors.
		CustomerEmail: stripe.String(params.CustomerEmail),
		Metadata: map[string]string{
			"order_id": params.OrderID.String(),
		},
	}

	if params.CustomerEmail == "" {
		sessionParams.CustomerEmail = nil
	}

	sess, err := c.client.V1CheckoutSessions.Create(ctx, sessionParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return sess, nil
}
