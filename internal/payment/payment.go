package payment

import "context"

// Gateway is the hosted-checkout provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ResolvePaymentIntent finds the order correlation stored on the session
	// that produced the payment intent.
	ResolvePaymentIntent(ctx context.Context, intentID string) (*Correlation, error)
	ParseEvent(payload []byte, signature string) (*Event, error)
}
