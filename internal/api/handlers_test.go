package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/app"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
)

type subscriberStub struct {
	err      error
	panicMsg string
	emails   []string
}

func (s *subscriberStub) Subscribe(ctx context.Context, email string) (*domain.Subscriber, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.emails = append(s.emails, email)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Subscriber{ID: "sub-1", Email: email}, nil
}

func newTestRouter(service Subscriber) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(service, logger), []string{"*"})
}

func postSubscribe(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/subscribe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleSubscribe_Success(t *testing.T) {
	service := &subscriberStub{}
	rec := postSubscribe(t, newTestRouter(service), `{"email":"new@example.com"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"message": "Subscription successful, confirmation email sent."}, decodeBody(t, rec))
	assert.Equal(t, []string{"new@example.com"}, service.emails)
}

func TestHandleSubscribe_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "missing email", err: app.ErrMissingEmail, wantStatus: http.StatusBadRequest, wantError: "Email is required"},
		{name: "already subscribed", err: app.ErrAlreadySubscribed, wantStatus: http.StatusBadRequest, wantError: "This email is already subscribed."},
		{name: "persistence failed", err: fmt.Errorf("%w: %w", app.ErrPersistenceFailed, errors.New("connection refused")), wantStatus: http.StatusInternalServerError, wantError: "Server error"},
		{name: "confirmation failed", err: fmt.Errorf("%w: %w", app.ErrConfirmationFailed, errors.New("535 auth")), wantStatus: http.StatusInternalServerError, wantError: "Server error"},
		{name: "unknown error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: "Server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postSubscribe(t, newTestRouter(&subscriberStub{err: tt.err}), `{"email":"a@example.com"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.wantError}, decodeBody(t, rec))
		})
	}
}

func TestHandleSubscribe_BodyParsing(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantEmail []string
	}{
		{name: "empty body reaches service as empty email", body: "", wantCode: http.StatusOK, wantEmail: []string{""}},
		{name: "empty object reaches service as empty email", body: `{}`, wantCode: http.StatusOK, wantEmail: []string{""}},
		{name: "null email", body: `{"email":null}`, wantCode: http.StatusOK, wantEmail: []string{""}},
		{name: "email is passed through untouched", body: `{"email":" Mixed@Example.com "}`, wantCode: http.StatusOK, wantEmail: []string{" Mixed@Example.com "}},
		{name: "malformed json", body: `{"email":`, wantCode: http.StatusBadRequest},
		{name: "email not a string", body: `{"email":42}`, wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &subscriberStub{}
			rec := postSubscribe(t, newTestRouter(service), tt.body)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantEmail, service.emails)
			if tt.wantCode == http.StatusBadRequest {
				assert.Equal(t, map[string]string{"error": "Invalid request body"}, decodeBody(t, rec))
			}
		})
	}
}

func TestRecoverer_TurnsPanicIntoServerError(t *testing.T) {
	router := newTestRouter(&subscriberStub{panicMsg: "nil map write"})

	rec := postSubscribe(t, router, `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "Server error"}, decodeBody(t, rec))

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code, "router keeps serving after a panic")
}

func TestRouter_RejectsOtherMethods(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&subscriberStub{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/subscribe", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_AnswersCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/subscribe", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()

	newTestRouter(&subscriberStub{}).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
