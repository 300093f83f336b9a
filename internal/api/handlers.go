/**
 * @description
 * This file contains the HTTP handler functions for the subscribe service.
 * Handlers parse incoming requests, call the service layer and translate its
 * errors into status codes and short JSON error messages.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/app"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
)

const (
	msgSubscribed        = "Subscription successful, confirmation email sent."
	msgEmailRequired     = "Email is required"
	msgAlreadySubscribed = "This email is already subscribed."
	msgInvalidBody       = "Invalid request body"
	msgServerError       = "Server error"

	maxBodyBytes = 1 << 16
)

// Subscriber is the application operation behind POST /api/subscribe.
type Subscriber interface {
	Subscribe(ctx context.Context, email string) (*domain.Subscriber, error)
}

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service Subscriber
	logger  *slog.Logger
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service Subscriber, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleSubscribe handles POST /api/subscribe.
func (h *Handler) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
	// An empty body carries no email; treat it like {} rather than bad JSON.
	if err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if _, err := h.service.Subscribe(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, app.ErrMissingEmail):
			respondWithError(w, http.StatusBadRequest, msgEmailRequired)
		case errors.Is(err, app.ErrAlreadySubscribed):
			respondWithError(w, http.StatusBadRequest, msgAlreadySubscribed)
		default:
			h.logger.Error("subscription failed", "error", err)
			respondWithError(w, http.StatusInternalServerError, msgServerError)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, messageResponse{Message: msgSubscribed})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, errorResponse{Error: message})
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
