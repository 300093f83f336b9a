package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
)

const maxFailureReasonBytes = 2000

// FollowUpMessage is a delayed email waiting in the follow_up_emails outbox.
type FollowUpMessage struct {
	ID       int64
	Email    domain.OutboundEmail
	Attempts int
}

// EnqueueFollowUp stores a follow-up email to be sent once sendAfter has passed.
func (r *Repository) EnqueueFollowUp(ctx context.Context, email domain.OutboundEmail, sendAfter time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO follow_up_emails (sender, recipient, subject, body, send_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, email.From, email.To, email.Subject, email.Body, sendAfter).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("enqueue follow-up: %w", err)
	}
	return id, nil
}

// ClaimDueFollowUps moves up to limit due rows into processing and returns them.
// Rows left in processing for longer than staleAfter (a crashed sweeper) are reclaimed.
func (r *Repository) ClaimDueFollowUps(ctx context.Context, limit int, staleAfter time.Duration) ([]FollowUpMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	staleAfterSeconds := int(staleAfter.Seconds())
	if staleAfterSeconds <= 0 {
		staleAfterSeconds = 120
	}

	query := `
		WITH candidates AS (
			SELECT id
			FROM follow_up_emails
			WHERE (
				(status = 'pending' AND send_after <= NOW())
				OR (status = 'processing' AND processing_started_at < NOW() - ($2 * INTERVAL '1 second'))
			)
			ORDER BY send_after
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE follow_up_emails AS f
		SET status = 'processing',
			processing_started_at = NOW(),
			attempts = f.attempts + 1
		FROM candidates
		WHERE f.id = candidates.id
		RETURNING f.id, f.sender, f.recipient, f.subject, f.body, f.attempts
	`

	rows, err := r.db.Query(ctx, query, limit, staleAfterSeconds)
	if err != nil {
		return nil, fmt.Errorf("claim follow-ups: %w", err)
	}
	defer rows.Close()

	messages := make([]FollowUpMessage, 0, limit)
	for rows.Next() {
		var msg FollowUpMessage
		if err := rows.Scan(&msg.ID, &msg.Email.From, &msg.Email.To, &msg.Email.Subject, &msg.Email.Body, &msg.Attempts); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim follow-ups: %w", err)
	}
	return messages, nil
}

// MarkFollowUpSent records a successful delivery.
func (r *Repository) MarkFollowUpSent(ctx context.Context, id int64, receipt string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE follow_up_emails
		SET status = 'sent',
			sent_at = NOW(),
			receipt = $2,
			processing_started_at = NULL,
			last_error = NULL
		WHERE id = $1
	`, id, receipt)
	return err
}

// MarkFollowUpFailed records a failed delivery. Failed rows are terminal; they are never retried.
func (r *Repository) MarkFollowUpFailed(ctx context.Context, id int64, reason string) error {
	if len(reason) > maxFailureReasonBytes {
		// Drop a multi-byte character cut in half; the column only accepts valid UTF-8.
		reason = strings.ToValidUTF8(reason[:maxFailureReasonBytes], "")
	}
	_, err := r.db.Exec(ctx, `
		UPDATE follow_up_emails
		SET status = 'failed',
			processing_started_at = NULL,
			last_error = $2
		WHERE id = $1
	`, id, reason)
	return err
}
