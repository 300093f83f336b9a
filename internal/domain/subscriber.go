/**
 * @description
 * This file defines the core domain models for the subscribe service.
 * A Subscriber maps to a row in the subscribers table; the email address
 * is the natural key and is enforced unique by the database.
 */
package domain

import "time"

// Subscriber represents a single subscribed email address.
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriberCreatedEvent is published after a subscription has been confirmed.
type SubscriberCreatedEvent struct {
	SubscriberID string    `json:"subscriber_id"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}
