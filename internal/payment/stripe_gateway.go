package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-be/internal/logger"

	"github.com/stripe/stripe-go/v78"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
)

const defaultGatewayTimeout = 15 * time.Second

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	FirstByPaymentIntent(params *stripe.CheckoutSessionListParams) (*stripe.CheckoutSession, error)
}

// sessionClient narrows the SDK iterator to the first match.
type sessionClient struct {
	c *checkoutsession.Client
}

func (s sessionClient) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return s.c.New(params)
}

func (s sessionClient) FirstByPaymentIntent(params *stripe.CheckoutSessionListParams) (*stripe.CheckoutSession, error) {
	it := s.c.List(params)
	if it.Next() {
		return it.CheckoutSession(), nil
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return nil, ErrSessionNotFound
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	Timeout       time.Duration
}

type stripeGateway struct {
	sessions      stripeSessionAPI
	webhookSecret string
	currency      string
	timeout       time.Duration
}

// NewStripeGateway builds a gateway whose HTTP client and per-call context
// both carry the configured timeout. Network retries are disabled.
func NewStripeGateway(cfg StripeConfig) (Gateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}
	sc := client.New(key, backends)

	return newStripeGateway(sessionClient{c: sc.CheckoutSessions}, cfg.WebhookSecret, cfg.Currency, timeout), nil
}

func newStripeGateway(sessions stripeSessionAPI, webhookSecret, currency string, timeout time.Duration) *stripeGateway {
	if currency == "" {
		currency = "inr"
	}
	return &stripeGateway{
		sessions:      sessions,
		webhookSecret: webhookSecret,
		currency:      strings.ToLower(currency),
		timeout:       timeout,
	}
}

func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "gateway"),
		zap.String("method", "CreateCheckoutSession"),
		zap.String("order_id", req.OrderID),
	)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(g.currency),
				UnitAmount: stripe.Int64(item.UnitPrice * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems:  lineItems,
		Metadata: map[string]string{
			MetaOrderID: req.OrderID,
			MetaUserID:  strconv.FormatUint(uint64(req.UserID), 10),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID)

	session, err := g.sessions.New(params)
	if err != nil {
		log.Error("checkout session creation failed", zap.Error(err))
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	log.Info("checkout session created", zap.String("session_id", session.ID))
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

func (g *stripeGateway) ResolvePaymentIntent(ctx context.Context, intentID string) (*Correlation, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionListParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	session, err := g.sessions.FirstByPaymentIntent(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: list sessions for %s: %w", intentID, err)
	}

	orderID := session.Metadata[MetaOrderID]
	userID, err := strconv.ParseUint(session.Metadata[MetaUserID], 10, 64)
	if orderID == "" || err != nil {
		return nil, ErrMissingMetadata
	}
	return &Correlation{OrderID: orderID, UserID: uint(userID)}, nil
}

func (g *stripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type), Kind: EventIgnored, Payload: payload}
	switch evt.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		out.Kind = EventPaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		out.Kind = EventPaymentFailed
	default:
		return out, nil
	}

	if evt.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrMalformedEvent, evt.ID)
	}
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(evt.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: decode payment intent: %v", ErrMalformedEvent, err)
	}
	out.PaymentIntentID = intent.ID
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
