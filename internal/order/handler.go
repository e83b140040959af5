package order

import (
	"errors"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts under /api/order.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Post("/cod", h.placeWith(PaymentCOD))
		r.Post("/stripe", h.placeWith(PaymentOnline))
		r.Get("/user", h.ListForUser)
		r.Put("/cancel/user/{orderId}", h.CancelByCustomer)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator)
		r.Get("/seller", h.ListAll)
		r.Put("/cancel/seller/{orderId}", h.CancelByOperator)
		r.Put("/deliver/seller/{orderId}", h.MarkDelivered)
	})
}

type placeRequest struct {
	Items   []LineItem `json:"items"`
	Address *Address   `json:"address"`
}

func (h *Handler) placeWith(method PaymentType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, _ := utils.GetUserIDFromContext(ctx)

		var req placeRequest
		if err := utils.DecodeJSON(w, r, &req); err != nil {
			utils.WriteFailure(w, "Invalid data")
			return
		}

		res, err := h.svc.PlaceOrder(ctx, PlaceOrderInput{
			UserID:    userID,
			UserEmail: utils.GetUserEmailFromContext(ctx),
			Items:     req.Items,
			Address:   req.Address,
			Method:    method,
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		if method == PaymentOnline {
			utils.WriteOK(w, "", map[string]any{"url": res.RedirectURL})
			return
		}
		utils.WriteOK(w, "Order Placed Successfully", nil)
	}
}

func (h *Handler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	orders, err := h.svc.ListForUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "", map[string]any{"orders": orders})
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "", map[string]any{"orders": orders})
}

func (h *Handler) CancelByCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	userID, _ := utils.GetUserIDFromContext(r.Context())

	o, err := h.svc.CancelByCustomer(r.Context(), id, userID)
	if err != nil {
		h.writeLifecycleError(w, r, "cancel", o, err)
		return
	}
	utils.WriteOK(w, "Order cancelled", map[string]any{"order": o})
}

func (h *Handler) CancelByOperator(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.CancelByOperator(r.Context(), id)
	if err != nil {
		h.writeLifecycleError(w, r, "cancel", o, err)
		return
	}
	utils.WriteOK(w, "Order cancelled by admin", map[string]any{"order": o})
}

func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.MarkDelivered(r.Context(), id)
	if err != nil {
		h.writeLifecycleError(w, r, "deliver", o, err)
		return
	}
	utils.WriteOK(w, "Order marked as delivered", nil)
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		utils.WriteJSONError(w, "Order not found", http.StatusNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// Lifecycle failures answer 404/403/400 instead of 200.
func (h *Handler) writeLifecycleError(w http.ResponseWriter, r *http.Request, verb string, o *Order, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		utils.WriteJSONError(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		utils.WriteJSONError(w, "Not authorized to cancel this order", http.StatusForbidden)
	case errors.Is(err, ErrIllegalTransition):
		msg := "Cannot " + verb + " order"
		if o != nil {
			msg = "Cannot " + verb + " " + string(o.Status) + " order"
		}
		utils.WriteJSONError(w, msg, http.StatusBadRequest)
	default:
		h.writeError(w, r, err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		utils.WriteFailure(w, "Invalid data")
	case errors.Is(err, ErrInsufficientStock):
		utils.WriteFailure(w, "Insufficient stock for product")
	case errors.Is(err, ErrAmountTooLow):
		utils.WriteFailure(w, "Minimum order amount must be at least ₹50 for online payments.")
	default:
		logger.FromCtx(r.Context()).Error("order request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
