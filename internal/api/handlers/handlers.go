package handlers

import (
	"architect/internal/apperr"
	"architect/internal/app"
	"architect/internal/auth"
	"architect/internal/logger"
	"architect/pkg/validation"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handlers serves the HTTP API on top of the service layer
type Handlers struct {
	config        *app.Config
	validator     *validation.Validator
	authValidator *validation.AuthRequestValidator
}

// NewHandlers creates a new Handlers
func NewHandlers(config *app.Config) *Handlers {
	return &Handlers{
		config:        config,
		validator:     validation.New(),
		authValidator: validation.NewAuthRequestValidator(),
	}
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// statusFor maps a service error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrGenerationFailed), errors.Is(err, apperr.ErrInvalidGenerationOutput):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// sendError sends a standardized JSON error response
func (h *Handlers) sendError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Code:    status,
		Message: message,
	})
}

// sendServiceError logs err and answers with the status its kind maps to
func (h *Handlers) sendServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := statusFor(err)
	entry := logger.Log.WithError(err).WithField("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}

	if status == http.StatusInternalServerError {
		h.sendError(w, status, apperr.Code(err), message)
		return
	}
	h.sendError(w, status, apperr.Code(err), fmt.Sprintf("%s: %v", message, err))
}

// decode reads a JSON body into dst and validates it. On failure the error
// response is already written.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(w, r, dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_input", "Invalid request body: "+err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid_input", "Validation failed: "+err.Error())
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// pathID parses a positive integer URL parameter. On failure the error
// response is already written.
func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// ownerID returns the authenticated caller. Routes behind the auth
// middleware always have one.
func ownerID(r *http.Request) int64 {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("Error encoding response")
	}
}
