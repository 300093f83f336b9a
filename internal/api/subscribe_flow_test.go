package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/app"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/store"
)

type memoryRepo struct {
	mu     sync.Mutex
	emails map[string]bool
}

func (m *memoryRepo) CreateSubscriber(ctx context.Context, email string) (*domain.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emails[email] {
		return nil, store.ErrSubscriberExists
	}
	m.emails[email] = true
	return &domain.Subscriber{ID: email, Email: email, CreatedAt: time.Now()}, nil
}

type countingMailer struct {
	mu       sync.Mutex
	subjects []string
}

func (c *countingMailer) Send(ctx context.Context, email domain.OutboundEmail) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, email.Subject)
	return "<id@test>", nil
}

type noopFollowUps struct{}

func (noopFollowUps) Schedule(context.Context, domain.OutboundEmail, time.Time) error { return nil }

func newFlowRouter() (http.Handler, *countingMailer) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := &countingMailer{}
	service := app.NewService(&memoryRepo{emails: make(map[string]bool)}, mailer, noopFollowUps{}, logger, app.Options{
		Sender:        domain.Sender{Name: "Your Store", Address: "shop@example.com"},
		FollowUpDelay: time.Minute,
		FollowUpLink:  "https://shop.example.com",
	})
	return NewRouter(NewHandler(service, logger), []string{"*"}), mailer
}

func TestSubscribeFlow_MissingEmail(t *testing.T) {
	router, mailer := newFlowRouter()

	for _, body := range []string{"", `{}`, `{"email":""}`} {
		rec := postSubscribe(t, router, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.Equal(t, map[string]string{"error": "Email is required"}, decodeBody(t, rec))
	}
	assert.Empty(t, mailer.subjects)
}

func TestSubscribeFlow_SubscribeThenDuplicate(t *testing.T) {
	router, mailer := newFlowRouter()

	first := postSubscribe(t, router, `{"email":"new@example.com"}`)
	assert.Equal(t, http.StatusOK, first.Code)

	second := postSubscribe(t, router, `{"email":"new@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, second.Code)
	assert.Equal(t, map[string]string{"error": "This email is already subscribed."}, decodeBody(t, second))

	assert.Equal(t, []string{domain.ConfirmationSubject}, mailer.subjects)
}
