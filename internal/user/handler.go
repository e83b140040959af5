package user

import (
	"errors"
	"net/http"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc          Service
	tokens       *auth.Manager
	secureCookie bool
}

func NewHandler(svc Service, tokens *auth.Manager, secureCookie bool) *Handler {
	return &Handler{svc: svc, tokens: tokens, secureCookie: secureCookie}
}

// Routes mounts under /api/user.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.With(middleware.RequireUser).Get("/is-auth", h.IsAuth)
	r.With(middleware.RequireUser).Get("/logout", h.Logout)
	r.With(middleware.RequireOperator).Get("/getAllUser", h.ListUsers)
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteFailure(w, "Missing Details")
		return
	}

	token, u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	auth.SetTokenCookie(w, token, h.tokens.TTL(), h.secureCookie)
	utils.WriteOK(w, "", map[string]any{"user": map[string]any{"email": u.Email, "name": u.Name}})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteFailure(w, "Email and password are required")
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	auth.SetTokenCookie(w, token, h.tokens.TTL(), h.secureCookie)
	utils.WriteOK(w, "", map[string]any{"user": map[string]any{"email": u.Email, "name": u.Name}})
}

func (h *Handler) IsAuth(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	u, err := h.svc.GetByID(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteOK(w, "", map[string]any{"user": u})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.secureCookie)
	utils.WriteOK(w, "Logged Out", nil)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	utils.WriteOK(w, "", map[string]any{"users": users})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMissingFields):
		utils.WriteFailure(w, "Missing Details")
	case errors.Is(err, ErrEmailExists):
		utils.WriteFailure(w, "User already exists")
	case errors.Is(err, ErrInvalidCredentials):
		utils.WriteFailure(w, "Invalid email or password")
	case errors.Is(err, ErrUserNotFound):
		utils.WriteFailure(w, "User not found")
	default:
		logger.FromCtx(r.Context()).Error("user request failed", zap.String("path", r.URL.Path), zap.Error(err))
		utils.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
