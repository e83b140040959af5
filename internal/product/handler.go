package product

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

// Routes mounts under /api/product.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/list", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireOperator)
		r.Post("/add", h.Add)
		r.Post("/stock", h.ChangeStock)
		r.Put("/update/{id}", h.Update)
		r.Delete("/delete/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if products == nil {
		products = []*Product{}
	}
	utils.WriteOK(w, "", map[string]any{"products": products})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "", map[string]any{"product": p})
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var params CreateParams
	if err := utils.DecodeJSON(w, r, &params); err != nil {
		utils.WriteJSONError(w, "Invalid product data", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "Product Added", map[string]any{"product": p})
}

type changeStockRequest struct {
	ID      string `json:"id"`
	InStock bool   `json:"inStock"`
}

func (h *Handler) ChangeStock(w http.ResponseWriter, r *http.Request) {
	var req changeStockRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.WriteFailure(w, "Invalid data")
		return
	}
	id, ok := parseID(w, req.ID)
	if !ok {
		return
	}

	if err := h.svc.SetInStock(r.Context(), id, req.InStock); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "Stock Updated", nil)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var params UpdateParams
	if err := utils.DecodeJSON(w, r, &params); err != nil {
		utils.WriteFailure(w, "Invalid data")
		return
	}

	if err := h.svc.Update(r.Context(), id, params); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "Product Updated Successfully", nil)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteOK(w, "Product deleted successfully", nil)
}

func parseID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.WriteFailure(w, "Product not found")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		utils.WriteFailure(w, "Product not found")
	case errors.Is(err, ErrInvalidProduct):
		utils.WriteJSONError(w, "Name, Category, Price, and StockNumber are required", http.StatusBadRequest)
	case errors.Is(err, ErrNothingToUpdate):
		utils.WriteFailure(w, "Nothing to update")
	default:
		logger.FromCtx(r.Context()).Error("product request failed", zap.String("path", r.URL.Path), zap.Error(err))
		utils.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
