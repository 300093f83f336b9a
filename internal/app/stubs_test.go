package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// repoStub enforces uniqueness the way the subscribers table does.
type repoStub struct {
	mu      sync.Mutex
	records map[string]*domain.Subscriber
	err     error
	calls   int

	// onCreate runs after a successful insert.
	onCreate func()
}

func newRepoStub() *repoStub {
	return &repoStub{records: make(map[string]*domain.Subscriber)}
}

func (r *repoStub) CreateSubscriber(ctx context.Context, email string) (*domain.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if _, ok := r.records[email]; ok {
		return nil, store.ErrSubscriberExists
	}
	sub := &domain.Subscriber{ID: "sub-" + email, Email: email, CreatedAt: time.Now()}
	r.records[email] = sub
	if r.onCreate != nil {
		r.onCreate()
	}
	return sub, nil
}

func (r *repoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type sentEmail struct {
	email  domain.OutboundEmail
	sentAt time.Time
	ctxErr error
}

type mailerStub struct {
	mu        sync.Mutex
	sent      []sentEmail
	failFor   map[string]error
	delivered chan domain.OutboundEmail
}

func newMailerStub() *mailerStub {
	return &mailerStub{
		failFor:   make(map[string]error),
		delivered: make(chan domain.OutboundEmail, 16),
	}
}

func (m *mailerStub) Send(ctx context.Context, email domain.OutboundEmail) (string, error) {
	m.mu.Lock()
	err := m.failFor[email.Subject]
	m.sent = append(m.sent, sentEmail{email: email, sentAt: time.Now(), ctxErr: ctx.Err()})
	m.mu.Unlock()

	m.delivered <- email
	if err != nil {
		return "", err
	}
	return "<receipt@test>", nil
}

func (m *mailerStub) fail(subject string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor[subject] = err
}

func (m *mailerStub) sentWithSubject(subject string) []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentEmail
	for _, s := range m.sent {
		if s.email.Subject == subject {
			out = append(out, s)
		}
	}
	return out
}

type scheduledEmail struct {
	email     domain.OutboundEmail
	sendAfter time.Time
}

type followUpStub struct {
	mu        sync.Mutex
	scheduled []scheduledEmail
	err       error
}

func (f *followUpStub) Schedule(ctx context.Context, email domain.OutboundEmail, sendAfter time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.scheduled = append(f.scheduled, scheduledEmail{email: email, sendAfter: sendAfter})
	return nil
}

func (f *followUpStub) all() []scheduledEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduledEmail(nil), f.scheduled...)
}

type publishedEvent struct {
	routingKey string
	body       interface{}
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{routingKey: routingKey, body: body})
	return p.err
}

var errSMTPDown = errors.New("smtp: 535 authentication failed")
