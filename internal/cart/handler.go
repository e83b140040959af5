package cart

import (
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes mounts under /api/cart.
func (h *Handler) Routes(r chi.Router) {
	r.Use(middleware.RequireUser)
	r.Get("/", h.Get)
	r.Post("/update", h.Update)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	items, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to load cart", zap.Uint("user_id", userID), zap.Error(err))
		utils.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	utils.WriteOK(w, "", map[string]any{"cartItems": items})
}

type updateRequest struct {
	CartItems Items `json:"cartItems"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	var req updateRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteFailure(w, "Invalid cart data")
		return
	}
	for _, qty := range req.CartItems {
		if qty < 0 {
			utils.WriteFailure(w, ErrInvalidQuantity.Error())
			return
		}
	}

	if err := h.repo.Replace(r.Context(), userID, req.CartItems); err != nil {
		logger.FromCtx(r.Context()).Error("failed to update cart", zap.Uint("user_id", userID), zap.Error(err))
		utils.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	utils.WriteOK(w, "Cart Updated", nil)
}
