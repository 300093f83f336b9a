/**
 * @description
 * Outbound email payloads. These are transient and never persisted by the
 * subscription flow itself; the follow-up outbox stores a copy when the
 * durable follow-up mode is enabled.
 */
package domain

import "fmt"

const (
	ConfirmationSubject = "Subscription Confirmation"
	ConfirmationBody    = "Thank you for subscribing to our online store. You will receive $15 credit for your next purchase!"

	FollowUpSubject = "Website Live Notification"
)

// OutboundEmail is a single plain-text message.
type OutboundEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender is the fixed identity used on every outgoing message.
type Sender struct {
	Name    string
	Address string
}

// String renders the sender as an RFC 5322 address, e.g. "Your Store <shop@example.com>".
func (s Sender) String() string {
	if s.Name == "" {
		return s.Address
	}
	return fmt.Sprintf("%s <%s>", s.Name, s.Address)
}

// NewConfirmationEmail builds the message sent right after a subscription is stored.
func NewConfirmationEmail(from Sender, to string) OutboundEmail {
	return OutboundEmail{
		From:    from.String(),
		To:      to,
		Subject: ConfirmationSubject,
		Body:    ConfirmationBody,
	}
}

// NewFollowUpEmail builds the delayed "website is live" message.
func NewFollowUpEmail(from Sender, to, link string) OutboundEmail {
	return OutboundEmail{
		From:    from.String(),
		To:      to,
		Subject: FollowUpSubject,
		Body:    fmt.Sprintf("Good news! The website is now live and ready for use. Visit it here: [%s].", link),
	}
}
