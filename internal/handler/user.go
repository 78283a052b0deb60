package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/campuskart-backend/internal/user"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name       string `json:"name" validate:"required,min=2"`
	ProfileImg string `json:"profile_img"`
}

type UserHandler struct {
	svc      user.Service
	validate *validator.Validate
}

func NewUserHandler(svc user.Service) *UserHandler {
	return &UserHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Post("/users", h.handleRegister)
	router.Post("/login", h.handleLogin)
	router.Get("/users/{id}", h.handleGetUser)
	router.Put("/profile", h.handleUpdateProfile)
}

func (h *UserHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload RegisterRequest
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

	u, err := h.svc.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, u)
}

// handleLogin verifies credentials and returns the user identity. The
// edge turns this into whatever session mechanism it runs.
func (h *UserHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondValidationError(w, err)
		return
	}

	u, err := h.svc.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *UserHandler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := actorID(r)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var payload UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		respondValidationError(w, err)
		return
	}

	u := &user.User{ID: id, Name: payload.Name, ProfileImg: payload.ProfileImg}
	if err := h.svc.UpdateProfile(r.Context(), u); err != nil {
		respondServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "Profile updated."})
}
