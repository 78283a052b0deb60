package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/campuskart-backend/internal/order"
)

type PlaceOrderRequest struct {
	Cart []CartLineRequest `json:"cart" validate:"required,min=1,dive"`
	// PaymentMode is a free-form label; empty defaults to COD.
	PaymentMode string `json:"payment_mode"`
}

type CartLineRequest struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"qty" validate:"required,gt=0"`
}

type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handlePlaceOrder)
	router.Get("/orders", h.handleListOrders)
	router.Get("/orders/sales", h.handleListSales)
	router.Post("/orders/{id}/cancel", h.handleCancelOrder)
	router.Post("/orders/{id}/received", h.handleMarkReceived)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var payload PlaceOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondValidationError(w, err)
		return
	}

	cart := make([]order.CartLine, 0, len(payload.Cart))
	for _, line := range payload.Cart {
		cart = append(cart, order.CartLine{ItemID: line.ItemID, Quantity: line.Quantity})
	}

	receipts, err := h.svc.PlaceOrder(r.Context(), buyerID, cart, payload.PaymentMode)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"ok":       true,
		"receipts": receipts,
	})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	buyerID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	orders, err := h.svc.ListBuyerOrders(r.Context(), buyerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleListSales(w http.ResponseWriter, r *http.Request) {
	sellerID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	sales, err := h.svc.ListSellerSales(r.Context(), sellerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sales)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	requesterID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := h.svc.CancelOrder(r.Context(), orderID, requesterID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Order successfully cancelled."})
}

func (h *OrderHandler) handleMarkReceived(w http.ResponseWriter, r *http.Request) {
	requesterID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := h.svc.MarkReceived(r.Context(), orderID, requesterID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Order marked as received."})
}
