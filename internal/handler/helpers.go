package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/campuskart-backend/internal/item"
	"github.com/vasiliy-maslov/campuskart-backend/internal/order"
	"github.com/vasiliy-maslov/campuskart-backend/internal/user"
)

// actorHeader carries the authenticated user id. Authentication itself
// lives at the edge (session provider); this backend trusts the
// identity it is handed.
const actorHeader = "X-User-ID"

var errNoActor = errors.New("missing or invalid " + actorHeader + " header")

func actorID(r *http.Request) (int64, error) {
	raw := r.Header.Get(actorHeader)
	if raw == "" {
		return 0, errNoActor
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errNoActor
	}
	return id, nil
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

func respondValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			details[fe.Field()] = fe.Tag()
		}
		respondWithJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": details,
		})
		return
	}
	respondWithError(w, http.StatusBadRequest, "validation failed")
}

// mapErrorToStatusCode translates sentinel errors into HTTP statuses.
// Anything unrecognized is an infrastructure failure: a 500 the client
// may retry, as opposed to the 4xx input errors it must fix.
func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, item.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrPermissionDenied),
		errors.Is(err, item.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrItemUnavailable),
		errors.Is(err, order.ErrSelfPurchase),
		errors.Is(err, order.ErrInvalidDeliveryCode):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, item.ErrItemLocked),
		errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("handler: internal error")
		respondWithError(w, code, "internal error")
		return
	}
	respondWithError(w, code, err.Error())
}
