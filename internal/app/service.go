/**
 * @description
 * This file contains the core business logic for the subscribe service.
 * The Service orchestrates a single subscription: validate, persist, send the
 * confirmation email, then hand the follow-up email to a scheduler.
 */
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/store"
)

const (
	SubscriberCreatedRoutingKey = "subscriber.created"

	eventPublishTimeout = 5 * time.Second
)

var (
	ErrMissingEmail       = errors.New("email is required")
	ErrAlreadySubscribed  = errors.New("email is already subscribed")
	ErrPersistenceFailed  = errors.New("failed to store subscriber")
	ErrConfirmationFailed = errors.New("failed to send confirmation email")
)

// Repository defines the interface for database operations that the service needs.
type Repository interface {
	CreateSubscriber(ctx context.Context, email string) (*domain.Subscriber, error)
}

// Mailer sends a single email and returns a transport receipt.
type Mailer interface {
	Send(ctx context.Context, email domain.OutboundEmail) (string, error)
}

// FollowUpScheduler arranges for email to be sent no earlier than sendAfter.
type FollowUpScheduler interface {
	Schedule(ctx context.Context, email domain.OutboundEmail, sendAfter time.Time) error
}

// EventPublisher announces domain events. It is optional.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// Options carries the fixed parts of every subscription.
type Options struct {
	Sender        domain.Sender
	FollowUpDelay time.Duration
	FollowUpLink  string
	Events        EventPublisher
	Now           func() time.Time
}

// Service provides the business logic for subscriptions.
type Service struct {
	repo      Repository
	mailer    Mailer
	followUps FollowUpScheduler
	events    EventPublisher
	logger    *slog.Logger

	sender        domain.Sender
	followUpDelay time.Duration
	followUpLink  string
	now           func() time.Time
}

// NewService creates a new subscription service.
func NewService(repo Repository, mailer Mailer, followUps FollowUpScheduler, logger *slog.Logger, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:          repo,
		mailer:        mailer,
		followUps:     followUps,
		events:        opts.Events,
		logger:        logger,
		sender:        opts.Sender,
		followUpDelay: opts.FollowUpDelay,
		followUpLink:  opts.FollowUpLink,
		now:           opts.Now,
	}
}

// Subscribe stores email and sends the confirmation message before returning.
// The follow-up message is scheduled afterwards and never affects the result.
//
// A confirmation failure is reported even though the subscriber row is already
// committed; callers see the same class of error as a storage failure.
func (s *Service) Subscribe(ctx context.Context, email string) (*domain.Subscriber, error) {
	if email == "" {
		return nil, ErrMissingEmail
	}

	sub, err := s.repo.CreateSubscriber(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrSubscriberExists) {
			return nil, ErrAlreadySubscribed
		}
		s.logger.Error("failed to store subscriber", "email", email, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	// The row is committed; a client that goes away must not abort the mail.
	// The dispatcher's own send timeout still bounds it.
	detached := context.WithoutCancel(ctx)

	receipt, err := s.mailer.Send(detached, domain.NewConfirmationEmail(s.sender, email))
	if err != nil {
		s.logger.Error("failed to send confirmation email", "email", email, "subscriber_id", sub.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrConfirmationFailed, err)
	}
	s.logger.Info("confirmation email sent", "email", email, "receipt", receipt)

	sendAfter := s.now().Add(s.followUpDelay)
	followUp := domain.NewFollowUpEmail(s.sender, email, s.followUpLink)
	if err := s.followUps.Schedule(detached, followUp, sendAfter); err != nil {
		s.logger.Warn("failed to schedule follow-up email", "email", email, "error", err)
	}

	s.publishCreated(detached, sub)
	return sub, nil
}

func (s *Service) publishCreated(ctx context.Context, sub *domain.Subscriber) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, eventPublishTimeout)
	defer cancel()

	event := domain.SubscriberCreatedEvent{
		SubscriberID: sub.ID,
		Email:        sub.Email,
		CreatedAt:    sub.CreatedAt,
	}
	if err := s.events.Publish(ctx, SubscriberCreatedRoutingKey, event); err != nil {
		s.logger.Warn("failed to publish subscriber event", "subscriber_id", sub.ID, "error", err)
	}
}
