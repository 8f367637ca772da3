package handlers

import (
	"errors"
	"net/http"

	"managerclass/internal/logger"
	"managerclass/internal/service"
	"managerclass/internal/validation"
)

// AuthHandler handles learner registration
type AuthHandler struct {
	authService *service.AuthService
	log         *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// Start registers a learner or resumes an existing one by phone number
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req service.StartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, h.log, http.StatusBadRequest, MsgMissingFields, "invalid start request", err)
		return
	}

	result, err := h.authService.Start(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.log, err, registrationMessage(err), "start session failed")
		return
	}

	respondOK(w, result)
}

// registrationMessage picks the form hint for a rejected registration
func registrationMessage(err error) string {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return ""
	}
	switch verr.Field {
	case "name", "phone":
		return MsgNameAndPhoneRequired
	case "region", "applicationReason":
		return MsgRegionAndReason
	default:
		return MsgMissingFields
	}
}
