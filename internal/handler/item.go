package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/campuskart-backend/internal/item"
)

type CreateItemRequest struct {
	Name        string  `json:"name" validate:"required,min=1"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
}

type ItemHandler struct {
	svc      item.Service
	validate *validator.Validate
}

func NewItemHandler(svc item.Service) *ItemHandler {
	return &ItemHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *ItemHandler) RegisterRoutes(router chi.Router) {
	router.Get("/items", h.handleBrowse)
	router.Get("/items/{id}", h.handleGetItem)
	router.Post("/items", h.handleCreateItem)
	router.Get("/items/mine", h.handleListMine)
	router.Delete("/items/{id}", h.handleDeleteItem)
}

// handleBrowse is the catalog view: available items with stock left,
// optionally filtered by ?q= name substring and ?cat= category.
func (h *ItemHandler) handleBrowse(w http.ResponseWriter, r *http.Request) {
	filter := item.Filter{
		Query:    r.URL.Query().Get("q"),
		Category: r.URL.Query().Get("cat"),
	}

	items, err := h.svc.BrowseCatalog(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	it, err := h.svc.GetItemByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, it)
}

func (h *ItemHandler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	sellerID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var payload CreateItemRequest
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

	it := &item.Item{
		SellerID:    sellerID,
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Category:    payload.Category,
		ImageURL:    payload.ImageURL,
		Quantity:    payload.Quantity,
	}

	created, err := h.svc.CreateListing(r.Context(), it)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ItemHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	sellerID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	items, err := h.svc.ListSellerItems(r.Context(), sellerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	sellerID, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.svc.DeleteListing(r.Context(), id, sellerID); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
