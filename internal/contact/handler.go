package contact

import (
	"html"
	"net/http"
	"net/mail"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/notify"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

type Request struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type Handler struct {
	notifier notify.Dispatcher
	policy   *bluemonday.Policy
}

func NewHandler(notifier notify.Dispatcher) *Handler {
	return &Handler{
		notifier: notifier,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Routes mounts under /api/contact.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Send)
}

// clean strips all markup. Entities are decoded again because the mail
// templates escape on render.
func (h *Handler) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(s)))
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(zap.String("layer", "handler"), zap.String("method", "Contact"))

	var req Request
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteJSONError(w, "Please fill all required fields.", http.StatusBadRequest)
		return
	}

	n := notify.Notification{
		Kind:    notify.KindContactMessage,
		Name:    h.clean(req.Name),
		Email:   h.clean(req.Email),
		Phone:   h.clean(req.Phone),
		Message: h.clean(req.Message),
	}
	if n.Name == "" || n.Email == "" || n.Message == "" {
		utils.WriteJSONError(w, "Please fill all required fields.", http.StatusBadRequest)
		return
	}

	// Only a bare address may reach the Reply-To header.
	addr, err := mail.ParseAddress(n.Email)
	if err != nil || addr.Address != n.Email {
		utils.WriteJSONError(w, "Please enter a valid email address.", http.StatusBadRequest)
		return
	}

	if err := h.notifier.Dispatch(r.Context(), n); err != nil {
		log.Error("failed to dispatch contact message", zap.Error(err))
		utils.WriteJSONError(w, "Failed to send email.", http.StatusInternalServerError)
		return
	}
	utils.WriteOK(w, "Message sent successfully.", nil)
}
