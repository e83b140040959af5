package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBodyBytes bounds the raw payload read before verification.
const maxBodyBytes = 64 << 10

const SignatureHeader = "Stripe-Signature"

// Handler receives payment-intent events from the gateway.
type Handler struct {
	OrderSvc    order.Service
	Gateway     payment.Gateway
	PaymentRepo payment.Repository
	Carts       cart.Repository
	Stats       *metrics.Stats
}

func NewWebhookHandler(
	orderSvc order.Service,
	gateway payment.Gateway,
	paymentRepo payment.Repository,
	carts cart.Repository,
) *Handler {
	return &Handler{
		OrderSvc:    orderSvc,
		Gateway:     gateway,
		PaymentRepo: paymentRepo,
		Carts:       carts,
		Stats:       metrics.NewStats(),
	}
}

func (h *Handler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "webhook"),
		zap.String("provider", payment.ProviderStripe),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	event, err := h.Gateway.ParseEvent(body, r.Header.Get(SignatureHeader))
	if errors.Is(err, payment.ErrInvalidSignature) {
		h.Stats.WebhooksRejected.Inc()
		log.Warn("rejected webhook", zap.Error(err))
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("failed to parse signed webhook", zap.Error(err))
		http.Error(w, "failed to parse event", http.StatusInternalServerError)
		return
	}
	log = log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	if event.Kind == payment.EventIgnored {
		log.Debug("event type not handled")
		acknowledge(w)
		return
	}

	webhookID, dup, err := h.PaymentRepo.SavePaymentWebhook(
		ctx, payment.ProviderStripe, event.ID, event.Type, event.PaymentIntentID, json.RawMessage(event.Payload),
	)
	if err != nil {
		log.Error("failed to record webhook", zap.Error(err))
		http.Error(w, "failed to record webhook", http.StatusInternalServerError)
		return
	}
	if dup {
		log.Info("duplicate webhook ignored")
		acknowledge(w)
		return
	}

	if err := h.process(ctx, log, event); err != nil {
		log.Error("failed to process webhook", zap.Error(err))
		if merr := h.PaymentRepo.MarkWebhookFailed(ctx, webhookID, err.Error()); merr != nil {
			log.Error("failed to mark webhook failed", zap.Error(merr))
		}
		http.Error(w, "failed to process webhook", http.StatusInternalServerError)
		return
	}

	if err := h.PaymentRepo.MarkWebhookProcessed(ctx, webhookID); err != nil {
		log.Warn("failed to mark webhook processed", zap.Error(err))
	}
	acknowledge(w)
}

func (h *Handler) process(ctx context.Context, log *zap.Logger, event *payment.Event) error {
	corr, err := h.Gateway.ResolvePaymentIntent(ctx, event.PaymentIntentID)
	if errors.Is(err, payment.ErrSessionNotFound) || errors.Is(err, payment.ErrMissingMetadata) {
		// not one of our checkout sessions
		log.Warn("payment intent has no order correlation",
			zap.String("payment_intent", event.PaymentIntentID), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	orderID, err := uuid.Parse(corr.OrderID)
	if err != nil {
		log.Warn("malformed order id in session metadata", zap.String("order_id", corr.OrderID))
		return nil
	}
	log = log.With(zap.String("order_id", orderID.String()))

	switch event.Kind {
	case payment.EventPaymentSucceeded:
		err := h.OrderSvc.MarkPaymentSucceeded(ctx, orderID)
		if errors.Is(err, order.ErrOrderNotFound) {
			log.Warn("paid order no longer exists")
			return nil
		}
		if err != nil {
			return err
		}
		if corr.UserID != 0 {
			if err := h.Carts.ClearCart(ctx, corr.UserID); err != nil {
				log.Warn("failed to clear cart after payment", zap.Uint("user_id", corr.UserID), zap.Error(err))
			}
		}
		return nil

	case payment.EventPaymentFailed:
		return h.OrderSvc.MarkPaymentFailed(ctx, orderID)
	}
	return nil
}

func acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
