package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/campuskart-backend/internal/order"
)

type CompleteOrderRequest struct {
	OTP string `json:"otp" validate:"required,len=4,numeric"`
}

// AdminHandler drives the fulfillment side of the order lifecycle.
// Admin authorization is an edge concern, same as user sessions.
type AdminHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewAdminHandler(svc order.Service) *AdminHandler {
	return &AdminHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Get("/admin/orders", h.handleListOpenOrders)
	router.Post("/admin/orders/{id}/transit", h.handleAdvanceToTransit)
	router.Post("/admin/orders/{id}/complete", h.handleCompleteOrder)
	router.Delete("/admin/orders/{id}", h.handleDeleteOrder)
}

func (h *AdminHandler) handleListOpenOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOpenOrders(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) handleAdvanceToTransit(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if err := h.svc.AdvanceToTransit(r.Context(), orderID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Order is now in transit."})
}

func (h *AdminHandler) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	var payload CompleteOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondValidationError(w, err)
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := h.svc.CompleteWithCode(r.Context(), orderID, payload.OTP); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Order completed."})
}

func (h *AdminHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if err := h.svc.DeleteOrder(r.Context(), orderID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
